package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/skynet-core/internal/device"
)

// Measurement names.
const (
	MeasurementSensorReadings = "sensor_readings"
	MeasurementTriggerFirings = "trigger_firings"
)

// WriteSensorReading records one sensor reading, stamped with the reading's
// own time (or now when it has none).
//
// Example:
//
//	client.WriteSensorReading(sensor)
//	// sensor_readings,sensor_type=temperature,sensor_name=kitchen value=21.5 1000000000
func (c *Client) WriteSensorReading(s device.Sensor) {
	at := s.Time
	if at.IsZero() {
		at = time.Now()
	}
	c.writePoint(
		MeasurementSensorReadings,
		map[string]string{
			"sensor_type": s.ID.Type,
			"sensor_name": s.ID.Name,
		},
		map[string]interface{}{
			"value": s.Value,
		},
		at,
	)
}

// WriteTriggerFiring records that a trigger fired and how many alarms it
// addressed.
func (c *Client) WriteTriggerFiring(triggerID string, sensor device.ID, severity string, value float64, targets int, at time.Time) {
	c.writePoint(
		MeasurementTriggerFirings,
		map[string]string{
			"trigger_id":  triggerID,
			"sensor_type": sensor.Type,
			"sensor_name": sensor.Name,
			"severity":    severity,
		},
		map[string]interface{}{
			"value":   value,
			"targets": targets,
		},
		at,
	)
}

// writePoint is a no-op on a closed client.
func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]interface{}, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(write.NewPoint(measurement, tags, fields, at))
}
