// Package topic encodes and decodes Skynet bus topics.
//
// Device topics have exactly three segments:
//
//	<prefix>/<deviceType>/<deviceName>
//
// where prefix is the sensor prefix ("sensors") or the alarm prefix
// ("alarms"). Each segment is one or more word characters ([A-Za-z0-9_]).
// The bare prefix on its own is the discovery topic: the coordinator
// publishes "hello" on "alarms" to make online alarms announce themselves.
//
//	codec := topic.Default
//	t, err := codec.Decode("sensors/temperature/kitchen")
//	// t.Category == topic.Sensor, t.ID == device.ID{Type: "temperature", Name: "kitchen"}
//
//	codec.Alarm(device.NewID("siren", "frontdoor")) // "alarms/siren/frontdoor"
//	codec.Filter(topic.Alarm)                       // "alarms/#"
package topic
