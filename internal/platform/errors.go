package platform

import "errors"

var (
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrDuplicateEntity = errors.New("entity already registered")
	ErrInvalidInterval = errors.New("poll interval must be positive")
)
