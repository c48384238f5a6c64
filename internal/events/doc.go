// Package events is the in-process event bus of Skynet Core.
//
// The coordinator posts one of three events while handling a bus message:
//
//   - SensorUpdated: a sensor reported a reading
//   - SensorOffline: a sensor announced it is going offline
//   - SensorTriggered: a reading fired a trigger
//
// Listeners register for the kinds they care about and are called
// synchronously, in registration order, on the goroutine that posted the
// event. A listener error or panic is logged and never reaches the poster.
package events
