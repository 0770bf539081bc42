package bridge

import "errors"

// Configuration errors
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrInvalidDriver  = errors.New("unknown driver")
)

// Startup errors
var (
	ErrSetupFailed     = errors.New("failed to set up entities")
	ErrInvalidArgument = errors.New("invalid configuration type")
)
