package hass

import "errors"

var (
	ErrUnknownTopic   = errors.New("command topic does not match an entity")
	ErrInvalidPayload = errors.New("invalid command payload")
	ErrAnnounceFailed = errors.New("failed to announce entity")
)
