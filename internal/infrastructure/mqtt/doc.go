// Package mqtt is the bus gateway of Skynet Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing, blocking (Publish) or hand-off (PublishAsync)
//   - Tracked subscriptions, restored after reconnect
//   - Last Will and Testament on skynet/system/status
//   - Counters for the health endpoint (Stats)
//
// # Architecture
//
//	sensors ──┐                       ┌── coordinator.OnMessage
//	          ├── MQTT broker ── Client
//	alarms  ──┘                       └── alarm commands (PublishAsync)
//
// Sessions are clean. After a reconnect the client re-subscribes, publishes
// its online status and calls the OnConnect callback, which the coordinator
// uses to repeat the discovery hello.
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS) outside a trusted LAN
//   - Credentials are checked against the broker ACL
//   - Never log MQTT passwords
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("sensors/#", 0, func(topic string, payload []byte) error {
//	    return nil
//	})
//
//	client.PublishAsync("alarms/siren/frontdoor", []byte("high"), 0, false)
package mqtt
