package coordinator

import "errors"

var (
	// ErrAlreadyStarted is returned by Start on a running coordinator.
	ErrAlreadyStarted = errors.New("coordinator: already started")

	// ErrUnroutable is returned for topics outside the sensor and alarm
	// namespaces.
	ErrUnroutable = errors.New("coordinator: unroutable topic")
)
