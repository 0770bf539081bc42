package blnetctl

import "errors"

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrUsage          = errors.New("usage error")
	ErrUnknownCommand = errors.New("unknown command")
	ErrAPI            = errors.New("API error")
)
