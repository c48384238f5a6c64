// Package automation holds the trigger rules of Skynet Core.
//
// A Trigger watches one sensor. When a reading satisfies its Condition the
// trigger fires and every targeted alarm receives the trigger's severity.
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────┐
//	│                 Evaluator (evaluator.go)              │
//	│  Matches a sensor reading against its triggers        │
//	│  ┌────────────────────────────────────────────┐      │
//	│  │            Registry (registry.go)           │      │
//	│  │  alarms online   map[device.ID]device.Alarm │      │
//	│  │  triggers        map[id]*Trigger            │      │
//	│  │  one RWMutex, deep-copy readers             │      │
//	│  └────────────────────────────────────────────┘      │
//	└──────────────────────────────────────────────────────┘
//
// # Cascade
//
// RemoveAlarm drops the alarm from every trigger that lists it. A trigger
// whose explicit alarm list becomes empty is removed in the same critical
// section, so no trigger ever points at an offline alarm. Trigger-all
// triggers are not affected and resolve their targets at firing time.
//
// # Thread Safety
//
// Registry and Evaluator are safe for concurrent use from multiple
// goroutines.
//
// # Usage
//
//	registry := automation.NewRegistry()
//	registry.AddAlarm(device.NewID("siren", "frontdoor"))
//
//	t, err := registry.AddTrigger(automation.Trigger{
//	    Sensor:    device.NewID("temperature", "kitchen"),
//	    Condition: automation.Above(25),
//	    Alarms:    []device.ID{device.NewID("siren", "frontdoor")},
//	    Severity:  automation.SeverityHigh,
//	})
//
//	for _, f := range automation.NewEvaluator(registry).Evaluate(sensor) {
//	    // publish f.Trigger.Severity to each of f.Targets
//	}
package automation
