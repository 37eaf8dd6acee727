package events

import (
	"errors"
	"fmt"
)

var (
	ErrPublisherClosed = errors.New("events: publisher is closed")
	ErrEmptyTopic      = errors.New("events: topic cannot be empty")
)

// ErrEncodePayload wraps a payload that could not be JSON-encoded.
type ErrEncodePayload struct {
	Topic string
	Err   error
}

func (e ErrEncodePayload) Error() string {
	return fmt.Sprintf("events: encode payload for topic %s: %v", e.Topic, e.Err)
}

func (e ErrEncodePayload) Unwrap() error {
	return e.Err
}
