// Package coordinator routes Skynet bus messages to the trigger engine.
//
// The Coordinator is the entry point for every inbound message:
//
//	sensors/<type>/<name>  → parse reading → SensorUpdated → evaluate triggers
//	                          → SensorTriggered + one alarm command per target
//	sensors/<type>/<name>  "offline" → SensorOffline (no evaluation)
//	alarms/<type>/<name>   "online"  → alarm added to the registry
//	alarms/<type>/<name>   "offline" → alarm removed, orphaned triggers removed
//	alarms                 discovery topic, ignored
//
// Messages are handled one at a time. Event listeners run on the delivery
// goroutine while the coordinator holds its processing lock, so a listener
// must not call OnMessage or Reset.
//
// # Lifecycle
//
//	coord := coordinator.New(cfg, gateway, registry, notifier)
//	if err := coord.Start(ctx); err != nil { ... }  // subscribe + hello
//	defer coord.Stop()
//
//	client.SetOnDisconnect(coord.OnConnectionLost)  // full reset
//	client.SetOnConnect(coord.OnConnected)          // hello again
package coordinator
