package topic

import "errors"

var (
	// ErrMalformedTopic is returned when a topic does not have the
	// <prefix>/<type>/<name> shape.
	ErrMalformedTopic = errors.New("topic: malformed topic")

	// ErrUnknownCategory is returned when the first segment is not a
	// configured prefix.
	ErrUnknownCategory = errors.New("topic: unknown category")

	// ErrInvalidPrefix is returned by New for unusable prefixes.
	ErrInvalidPrefix = errors.New("topic: invalid prefix")
)
