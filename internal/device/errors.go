package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrMalformedPayload) {
//	    // drop the message
//	}
var (
	// ErrInvalidID is returned when a device type or name is empty.
	ErrInvalidID = errors.New("device: invalid id")

	// ErrMalformedPayload is returned when a sensor payload cannot be parsed.
	ErrMalformedPayload = errors.New("device: malformed payload")
)
