package blnet

import "errors"

// Command dispatch errors
var (
	ErrUnknownChannel = errors.New("unknown channel")
	ErrNotConnected   = errors.New("not connected to broker")
	ErrPublishFailed  = errors.New("failed to publish command")
)

// Record decoding errors
var (
	ErrInvalidRecord = errors.New("invalid output record")
	ErrInvalidTopic  = errors.New("invalid state topic")
)
