package history

import "errors"

var (
	// ErrEventNotFound is returned when a history event does not exist.
	ErrEventNotFound = errors.New("history: event not found")

	// ErrInvalidEvent is returned when an event is missing required fields.
	ErrInvalidEvent = errors.New("history: invalid event")
)
