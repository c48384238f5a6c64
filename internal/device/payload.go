package device

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Presence payload markers.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// IsOnline reports whether payload announces a device coming online.
func IsOnline(payload []byte) bool {
	return strings.Contains(string(payload), PayloadOnline)
}

// IsOffline reports whether payload announces a device going offline.
func IsOffline(payload []byte) bool {
	return strings.Contains(string(payload), PayloadOffline)
}

// ReadingParser turns a raw sensor payload into a Reading.
type ReadingParser interface {
	Parse(payload []byte) (Reading, error)
}

// ReadingParserFunc adapts a function to ReadingParser.
type ReadingParserFunc func(payload []byte) (Reading, error)

// Parse calls f(payload).
func (f ReadingParserFunc) Parse(payload []byte) (Reading, error) {
	return f(payload)
}

// Default field names of the key=value payload format.
const (
	DefaultTimeKey  = "time"
	DefaultValueKey = "temp"
)

// KeyValueParser parses comma-joined key=value payloads such as
// "time=1700000000000,temp=21.5". The time field is epoch milliseconds.
// Field order does not matter and unknown keys are ignored.
type KeyValueParser struct {
	TimeKey  string
	ValueKey string
}

// DefaultParser parses the standard time/temp payload.
var DefaultParser ReadingParser = KeyValueParser{TimeKey: DefaultTimeKey, ValueKey: DefaultValueKey}

// Parse implements ReadingParser.
func (p KeyValueParser) Parse(payload []byte) (Reading, error) {
	timeKey, valueKey := p.TimeKey, p.ValueKey
	if timeKey == "" {
		timeKey = DefaultTimeKey
	}
	if valueKey == "" {
		valueKey = DefaultValueKey
	}

	var reading Reading
	var haveTime, haveValue bool
	for _, field := range strings.Split(string(payload), ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		key, raw, ok := strings.Cut(field, "=")
		if !ok {
			return Reading{}, fmt.Errorf("%w: field %q is not key=value", ErrMalformedPayload, field)
		}
		key = strings.TrimSpace(key)
		raw = strings.TrimSpace(raw)

		switch key {
		case timeKey:
			ms, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return Reading{}, fmt.Errorf("%w: %s=%q: %v", ErrMalformedPayload, key, raw, err)
			}
			reading.Time = time.UnixMilli(ms).UTC()
			haveTime = true
		case valueKey:
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return Reading{}, fmt.Errorf("%w: %s=%q: %v", ErrMalformedPayload, key, raw, err)
			}
			reading.Value = v
			haveValue = true
		}
	}

	if !haveTime {
		return Reading{}, fmt.Errorf("%w: missing %q field", ErrMalformedPayload, timeKey)
	}
	if !haveValue {
		return Reading{}, fmt.Errorf("%w: missing %q field", ErrMalformedPayload, valueKey)
	}
	return reading, nil
}
