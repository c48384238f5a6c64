package mqtt

import "errors"

// Errors returned by the gateway. Check with errors.Is.
var (
	// ErrNotConnected is returned while the broker connection is down.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned by Connect when the broker cannot be reached.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS is returned for a QoS above 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned for an empty topic or filter, or for a
	// publish topic containing a wildcard.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrTimeout is returned when paho does not complete a token in time.
	ErrTimeout = errors.New("mqtt: operation timed out")
)
