package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrTriggerNotFound) {
//	    // handle not found case
//	}
var (
	// ErrTriggerNotFound is returned when a trigger ID does not exist.
	ErrTriggerNotFound = errors.New("trigger: not found")

	// ErrInvalidTrigger is returned when trigger validation fails.
	ErrInvalidTrigger = errors.New("trigger: invalid")

	// ErrInvalidName is returned when a trigger name is too long.
	ErrInvalidName = errors.New("trigger: invalid name")

	// ErrInvalidCondition is returned when a trigger has no usable condition.
	ErrInvalidCondition = errors.New("trigger: invalid condition")

	// ErrInvalidSeverity is returned for an unknown severity level.
	ErrInvalidSeverity = errors.New("trigger: invalid severity")

	// ErrNoAlarms is returned when a trigger targets no alarms and is not
	// in trigger-all mode.
	ErrNoAlarms = errors.New("trigger: no alarms")

	// ErrUnknownAlarm is returned when a trigger targets an alarm that is
	// not currently online.
	ErrUnknownAlarm = errors.New("trigger: unknown alarm")
)
