package events

import (
	"github.com/nerrad567/skynet-core/internal/automation"
	"github.com/nerrad567/skynet-core/internal/device"
)

// Kind identifies an event type. The values double as WebSocket channel
// names.
type Kind string

const (
	KindSensorUpdated   Kind = "sensor.updated"
	KindSensorOffline   Kind = "sensor.offline"
	KindSensorTriggered Kind = "sensor.triggered"
)

// AllKinds returns every event kind.
func AllKinds() []Kind {
	return []Kind{KindSensorUpdated, KindSensorOffline, KindSensorTriggered}
}

// Event is one of SensorUpdated, SensorOffline or SensorTriggered.
// The set is closed: other packages cannot add variants.
type Event interface {
	Kind() Kind
	event()
}

// SensorUpdated is posted after a sensor reading has been parsed.
type SensorUpdated struct {
	Sensor device.Sensor `json:"sensor"`
}

// SensorOffline is posted when a sensor announces it is going offline.
type SensorOffline struct {
	Sensor device.Sensor `json:"sensor"`
}

// SensorTriggered is posted once per trigger fired by a reading.
// Targets are the alarms the command was sent to.
type SensorTriggered struct {
	Sensor  device.Sensor      `json:"sensor"`
	Trigger automation.Trigger `json:"trigger"`
	Targets []device.Alarm     `json:"targets"`
}

func (SensorUpdated) Kind() Kind   { return KindSensorUpdated }
func (SensorOffline) Kind() Kind   { return KindSensorOffline }
func (SensorTriggered) Kind() Kind { return KindSensorTriggered }

func (SensorUpdated) event()   {}
func (SensorOffline) event()   {}
func (SensorTriggered) event() {}
