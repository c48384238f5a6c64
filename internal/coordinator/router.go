package coordinator

import (
	"fmt"

	"github.com/nerrad567/skynet-core/internal/automation"
	"github.com/nerrad567/skynet-core/internal/device"
	"github.com/nerrad567/skynet-core/internal/events"
	"github.com/nerrad567/skynet-core/internal/topic"
)

// OnMessage handles one inbound bus message.
//
// Malformed topics and payloads are logged and returned; they never affect
// later messages. Discovery topics are ignored.
func (c *Coordinator) OnMessage(t string, payload []byte) error {
	c.procMu.Lock()
	defer c.procMu.Unlock()

	if c.codec.IsDiscovery(t) {
		c.logger.Debug("discovery message ignored", "topic", t)
		return nil
	}

	switch c.codec.CategoryOf(t) {
	case topic.Sensor:
		return c.handleSensor(t, payload)
	case topic.Alarm:
		return c.handleAlarm(t, payload)
	default:
		c.logger.Debug("message outside known namespaces", "topic", t)
		return fmt.Errorf("%w: %q", ErrUnroutable, t)
	}
}

func (c *Coordinator) handleSensor(t string, payload []byte) error {
	decoded, err := c.codec.Decode(t)
	if err != nil {
		c.logger.Warn("dropping sensor message", "topic", t, "error", err)
		return err
	}

	sensor := device.NewSensor(decoded.ID)

	if device.IsOffline(payload) {
		c.logger.Info("sensor offline", "sensor", sensor.ID.String())
		c.notifier.Post(events.SensorOffline{Sensor: sensor})
		return nil
	}

	reading, err := c.parser.Parse(payload)
	if err != nil {
		c.logger.Warn("dropping sensor message",
			"topic", t,
			"payload", string(payload),
			"error", err,
		)
		return fmt.Errorf("sensor %s: %w", sensor.ID, err)
	}
	sensor.Update(reading)

	c.notifier.Post(events.SensorUpdated{Sensor: sensor})

	for _, f := range c.evaluator.Evaluate(sensor) {
		c.logger.Info("trigger fired",
			"trigger_id", f.Trigger.ID,
			"sensor", sensor.ID.String(),
			"value", sensor.Value,
			"severity", string(f.Trigger.Severity),
			"targets", len(f.Targets),
		)
		c.notifier.Post(events.SensorTriggered{
			Sensor:  sensor,
			Trigger: f.Trigger,
			Targets: f.Targets,
		})
		c.dispatch(f.Trigger.Severity, f.Targets)
	}
	return nil
}

// dispatch sends one command per alarm. Failures are logged and do not stop
// the remaining commands.
func (c *Coordinator) dispatch(severity automation.Severity, targets []device.Alarm) {
	for _, a := range targets {
		dest := c.codec.Alarm(a.ID)
		if err := c.gateway.Publish(dest, severity.Payload(), commandQoS, false); err != nil {
			c.logger.Warn("alarm command failed",
				"topic", dest,
				"severity", string(severity),
				"error", err,
			)
		}
	}
}

func (c *Coordinator) handleAlarm(t string, payload []byte) error {
	decoded, err := c.codec.Decode(t)
	if err != nil {
		c.logger.Warn("dropping alarm message", "topic", t, "error", err)
		return err
	}

	switch {
	case device.IsOnline(payload):
		c.registry.AddAlarm(decoded.ID)
	case device.IsOffline(payload):
		for _, removed := range c.registry.RemoveAlarm(decoded.ID) {
			c.logger.Info("trigger dropped with its last alarm",
				"trigger_id", removed.ID,
				"alarm", decoded.ID.String(),
			)
		}
	default:
		// Our own severity commands echo back on the same topic.
		c.logger.Debug("alarm message ignored", "topic", t, "payload", string(payload))
	}
	return nil
}
