package entity

import "errors"

// Setup errors
var (
	ErrNoDiscovery      = errors.New("no BL-NET outputs discovered")
	ErrNoCommunication  = errors.New("no BL-NET communication configured")
	ErrInvalidDiscovery = errors.New("invalid discovery entry")
	ErrDuplicateEntity  = errors.New("duplicate entity")
)

// Command errors
var (
	ErrCommandFailed = errors.New("command failed")
)
