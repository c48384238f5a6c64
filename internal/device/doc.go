// Package device models the devices on the Skynet bus.
//
// Two kinds of device exist:
//
//   - Sensor: reports readings (a timestamp and a scalar value) on
//     sensors/{type}/{name}
//   - Alarm: receives severity commands on alarms/{type}/{name} and announces
//     its presence with "online" / "offline" payloads on the same topic
//
// Both are identified by an ID made of a device type and a device name.
// Two values with the same ID are the same device regardless of the reading
// they carry.
//
// # Payloads
//
// Sensor payloads are comma-joined key=value fields:
//
//	time=1700000000000,temp=21.5
//
// Parsing is pluggable through ReadingParser; KeyValueParser implements the
// format above. Presence payloads are matched by substring (IsOnline,
// IsOffline).
package device
