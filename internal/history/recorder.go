package history

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/skynet-core/internal/device"
	"github.com/nerrad567/skynet-core/internal/events"
)

// writeTimeout bounds a single history insert.
const writeTimeout = 5 * time.Second

// Telemetry receives readings and firings for time-series storage.
// *influxdb.Client satisfies it.
type Telemetry interface {
	WriteSensorReading(s device.Sensor)
	WriteTriggerFiring(triggerID string, sensor device.ID, severity string, value float64, targets int, at time.Time)
}

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Recorder is an events.Listener that stores trigger firings and forwards
// telemetry. Either sink may be nil.
type Recorder struct {
	repo      Repository
	telemetry Telemetry
	logger    Logger
	now       func() time.Time
}

// NewRecorder creates a Recorder.
func NewRecorder(repo Repository, telemetry Telemetry) *Recorder {
	return &Recorder{
		repo:      repo,
		telemetry: telemetry,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Kinds returns the event kinds the recorder needs.
func (r *Recorder) Kinds() []events.Kind {
	return []events.Kind{events.KindSensorUpdated, events.KindSensorTriggered}
}

// HandleEvent implements events.Listener.
func (r *Recorder) HandleEvent(e events.Event) error {
	switch ev := e.(type) {
	case events.SensorUpdated:
		if r.telemetry != nil {
			r.telemetry.WriteSensorReading(ev.Sensor)
		}
		return nil
	case events.SensorTriggered:
		return r.recordFiring(ev)
	default:
		return nil
	}
}

func (r *Recorder) recordFiring(ev events.SensorTriggered) error {
	firedAt := r.now().UTC()
	if ev.Trigger.LastFired != nil {
		firedAt = ev.Trigger.LastFired.UTC()
	}

	targets := make([]device.ID, len(ev.Targets))
	for i, a := range ev.Targets {
		targets[i] = a.ID
	}

	if r.telemetry != nil {
		r.telemetry.WriteTriggerFiring(ev.Trigger.ID, ev.Sensor.ID, string(ev.Trigger.Severity),
			ev.Sensor.Value, len(targets), firedAt)
	}
	if r.repo == nil {
		return nil
	}

	rec := &Event{
		TriggerID:   ev.Trigger.ID,
		TriggerName: ev.Trigger.Name,
		Sensor:      ev.Sensor.ID,
		Value:       ev.Sensor.Value,
		Severity:    string(ev.Trigger.Severity),
		Targets:     targets,
		ReadingAt:   ev.Sensor.Time,
		FiredAt:     firedAt,
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.repo.Create(ctx, rec); err != nil {
		r.logger.Warn("failed to record trigger firing", "trigger_id", ev.Trigger.ID, "error", err)
		return fmt.Errorf("recording firing of %s: %w", ev.Trigger.ID, err)
	}
	r.logger.Debug("trigger firing recorded", "trigger_id", ev.Trigger.ID, "event_id", rec.ID)
	return nil
}
