// Package influxdb records Skynet telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Two measurements are
// written:
//
//   - sensor_readings: one point per sensor reading
//     (tags sensor_type, sensor_name; field value)
//   - trigger_firings: one point per fired trigger
//     (tags trigger_id, sensor_type, sensor_name, severity; fields value, targets)
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteSensorReading(sensor)
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Batch errors are delivered to the SetOnError callback.
package influxdb
