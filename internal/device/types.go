package device

import (
	"fmt"
	"time"
)

// ID identifies a sensor or alarm by its device type and name.
// It is comparable and safe to use as a map key.
type ID struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// NewID builds an ID from a type and name.
func NewID(deviceType, name string) ID {
	return ID{Type: deviceType, Name: name}
}

// Validate checks that both parts of the ID are set.
func (id ID) Validate() error {
	if id.Type == "" || id.Name == "" {
		return fmt.Errorf("%w: type and name are required (got %q)", ErrInvalidID, id.String())
	}
	return nil
}

// String returns the ID as "type/name", the form used in topics.
func (id ID) String() string {
	return id.Type + "/" + id.Name
}

// Reading is a single sensor measurement.
type Reading struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Sensor is a reporting device and its most recent reading.
//
// Identity is the ID only; Time and Value are mutable reading data and do
// not take part in equality. Use Is to compare sensors.
type Sensor struct {
	ID    ID        `json:"id"`
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// NewSensor creates a sensor with no reading.
func NewSensor(id ID) Sensor {
	return Sensor{ID: id}
}

// Update applies a reading to the sensor.
func (s *Sensor) Update(r Reading) {
	s.Time = r.Time
	s.Value = r.Value
}

// Is reports whether s and other are the same device.
func (s Sensor) Is(other Sensor) bool {
	return s.ID == other.ID
}

// Alarm is a device able to receive alarm commands.
type Alarm struct {
	ID ID `json:"id"`
}

// NewAlarm creates an alarm for id.
func NewAlarm(id ID) Alarm {
	return Alarm{ID: id}
}

// Key returns the identity used for map lookups.
func (s Sensor) Key() ID {
	return s.ID
}
