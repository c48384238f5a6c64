// Package api implements the HTTP API and WebSocket event stream for
// Skynet Core.
//
// Endpoints (all under /api/v1):
//
//	GET    /health            component health
//	GET    /metrics           runtime, bus and registry statistics
//	GET    /alarms            alarms currently online
//	GET    /triggers          triggers, optionally for one sensor
//	POST   /triggers          register a trigger
//	GET    /triggers/{id}     one trigger
//	DELETE /triggers/{id}     remove a trigger
//	GET    /history           recorded trigger firings
//	GET    /history/{id}      one recorded firing
//	GET    /ws                WebSocket event stream (websocket.path)
//
// # Security
//
// When security.jwt.secret is set, POST and DELETE require an HS256 bearer
// token issued with that secret, and the WebSocket requires the same token
// in the access_token query parameter. An empty secret disables
// authentication.
//
// # WebSocket
//
// Clients subscribe to channels named after event kinds (sensor.updated,
// sensor.offline, sensor.triggered). The Hub is registered on the event
// notifier and relays each event to the subscribed clients.
package api
