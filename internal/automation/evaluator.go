package automation

import (
	"sort"

	"github.com/nerrad567/skynet-core/internal/device"
)

// Firing is one trigger that matched a reading, with the alarms that must
// receive its command.
type Firing struct {
	Trigger Trigger
	Targets []device.Alarm
}

// Evaluator matches sensor readings against the triggers in a Registry.
type Evaluator struct {
	registry *Registry
	logger   Logger
}

// NewEvaluator creates an evaluator over registry.
func NewEvaluator(registry *Registry) *Evaluator {
	return &Evaluator{
		registry: registry,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the evaluator.
func (e *Evaluator) SetLogger(logger Logger) {
	e.logger = logger
}

// Evaluate checks every trigger registered for the sensor against its
// current reading.
//
// Matching triggers are marked triggered and their targets resolved in the
// same critical section: all online alarms for trigger-all mode, the
// explicit list otherwise. Triggers for the sensor that do not match are
// re-armed. Triggers on other sensors are not touched.
//
// A condition that panics is treated as not matching.
func (e *Evaluator) Evaluate(s device.Sensor) []Firing {
	r := e.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*Trigger
	for _, t := range r.triggers {
		if t.Sensor != s.ID {
			continue
		}
		if e.matches(t, s) {
			matched = append(matched, t)
			continue
		}
		t.Triggered = false
	}
	if len(matched) == 0 {
		return nil
	}

	firedAt := r.now().UTC()
	var all []device.Alarm

	firings := make([]Firing, 0, len(matched))
	for _, t := range matched {
		t.Triggered = true
		at := firedAt
		t.LastFired = &at

		var targets []device.Alarm
		if t.TriggerAll {
			if all == nil {
				all = r.alarmSnapshot()
			}
			targets = make([]device.Alarm, len(all))
			copy(targets, all)
		} else {
			targets = make([]device.Alarm, 0, len(t.Alarms))
			for _, id := range t.Alarms {
				targets = append(targets, device.NewAlarm(id))
			}
		}

		firings = append(firings, Firing{Trigger: *t.DeepCopy(), Targets: targets})
	}

	sortFirings(firings)
	return firings
}

func (e *Evaluator) matches(t *Trigger, s device.Sensor) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("trigger condition panic recovered",
				"trigger_id", t.ID,
				"sensor", s.ID.String(),
				"panic", rec,
			)
			ok = false
		}
	}()
	return t.Condition.IsTriggeredBy(s)
}

func sortFirings(firings []Firing) {
	sort.Slice(firings, func(i, j int) bool {
		return triggerLess(&firings[i].Trigger, &firings[j].Trigger)
	})
}
