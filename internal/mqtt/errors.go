package mqtt

import "errors"

var (
	ErrInvalidServerURL = errors.New("invalid MQTT server URL")
	ErrNotConnected     = errors.New("MQTT client is not connected")
	ErrPublishFailed    = errors.New("failed to publish MQTT message")
	ErrSubscribeFailed  = errors.New("failed to subscribe to MQTT topic")
)
