// Package history keeps an audit trail of trigger firings.
//
// A Recorder listens on the event notifier. Every SensorTriggered event is
// stored as an Event in the trigger_events SQLite table, and every reading
// (SensorUpdated) and firing is forwarded to the telemetry writer when one
// is configured (InfluxDB in production).
//
// History is a log only. Triggers themselves are not persisted and do not
// survive a restart.
package history
