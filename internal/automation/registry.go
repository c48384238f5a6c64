package automation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/skynet-core/internal/device"
)

// Logger defines the logging interface used by the Registry and Evaluator.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry holds the alarms currently online and the registered triggers.
//
// A single lock guards both sets so that the cascade on alarm removal and
// trigger evaluation see one consistent state. Readers get deep copies;
// nothing returned by the registry aliases its internal state.
//
// All public methods are thread-safe.
type Registry struct {
	mu       sync.RWMutex
	alarms   map[device.ID]device.Alarm
	triggers map[string]*Trigger
	logger   Logger
	now      func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		alarms:   make(map[device.ID]device.Alarm),
		triggers: make(map[string]*Trigger),
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// AddAlarm marks an alarm as online. It reports whether the alarm was new.
func (r *Registry) AddAlarm(id device.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alarms[id]; ok {
		return false
	}
	r.alarms[id] = device.NewAlarm(id)

	r.logger.Info("alarm online", "alarm", id.String())
	return true
}

// RemoveAlarm marks an alarm as offline and drops it from every trigger
// that targets it explicitly. Triggers left with no alarms are removed and
// returned.
func (r *Registry) RemoveAlarm(id device.ID) []Trigger {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alarms[id]; ok {
		delete(r.alarms, id)
		r.logger.Info("alarm offline", "alarm", id.String())
	}

	var removed []Trigger
	for tid, t := range r.triggers {
		if t.TriggerAll || !t.References(id) {
			continue
		}

		kept := t.Alarms[:0]
		for _, a := range t.Alarms {
			if a != id {
				kept = append(kept, a)
			}
		}
		t.Alarms = kept

		if len(t.Alarms) == 0 {
			delete(r.triggers, tid)
			removed = append(removed, *t.DeepCopy())
			r.logger.Info("trigger removed, last alarm went offline",
				"trigger_id", tid,
				"alarm", id.String(),
			)
		}
	}

	sortTriggers(removed)
	return removed
}

// HasAlarm reports whether an alarm is online.
func (r *Registry) HasAlarm(id device.ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.alarms[id]
	return ok
}

// AllAlarms returns the online alarms sorted by type then name.
func (r *Registry) AllAlarms() []device.Alarm {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.alarmSnapshot()
}

// alarmSnapshot must be called with r.mu held.
func (r *Registry) alarmSnapshot() []device.Alarm {
	ids := make([]device.ID, 0, len(r.alarms))
	for id := range r.alarms {
		ids = append(ids, id)
	}
	sortIDs(ids)

	alarms := make([]device.Alarm, len(ids))
	for i, id := range ids {
		alarms[i] = r.alarms[id]
	}
	return alarms
}

// AddTrigger validates and registers t, returning the stored copy.
//
// An empty ID is replaced by a generated one. Adding a trigger whose ID is
// already registered changes nothing and returns the existing trigger.
// Every explicitly targeted alarm must be online.
func (r *Registry) AddTrigger(t Trigger) (Trigger, error) {
	t.Alarms = normaliseAlarms(t.Alarms)
	if err := ValidateTrigger(&t); err != nil {
		return Trigger{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ID != "" {
		if existing, ok := r.triggers[t.ID]; ok {
			return *existing.DeepCopy(), nil
		}
	} else {
		t.ID = GenerateID()
	}

	for _, a := range t.Alarms {
		if _, ok := r.alarms[a]; !ok {
			return Trigger{}, fmt.Errorf("%w: %s", ErrUnknownAlarm, a.String())
		}
	}

	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now().UTC()
	}
	t.Triggered = false
	t.LastFired = nil

	r.triggers[t.ID] = t.DeepCopy()

	r.logger.Info("trigger added",
		"trigger_id", t.ID,
		"sensor", t.Sensor.String(),
		"alarms", len(t.Alarms),
		"trigger_all", t.TriggerAll,
	)
	return t, nil
}

// RemoveTrigger unregisters a trigger. It reports whether it was present.
func (r *Registry) RemoveTrigger(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.triggers[id]; !ok {
		return false
	}
	delete(r.triggers, id)

	r.logger.Info("trigger removed", "trigger_id", id)
	return true
}

// Trigger returns a copy of the trigger with the given ID.
func (r *Registry) Trigger(id string) (Trigger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.triggers[id]
	if !ok {
		return Trigger{}, ErrTriggerNotFound
	}
	return *t.DeepCopy(), nil
}

// TriggersForSensor returns copies of the triggers watching sensor.
func (r *Registry) TriggersForSensor(sensor device.ID) []Trigger {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var triggers []Trigger
	for _, t := range r.triggers {
		if t.Sensor == sensor {
			triggers = append(triggers, *t.DeepCopy())
		}
	}
	sortTriggers(triggers)
	return triggers
}

// AllTriggers returns copies of every registered trigger, oldest first.
func (r *Registry) AllTriggers() []Trigger {
	r.mu.RLock()
	defer r.mu.RUnlock()

	triggers := make([]Trigger, 0, len(r.triggers))
	for _, t := range r.triggers {
		triggers = append(triggers, *t.DeepCopy())
	}
	sortTriggers(triggers)
	return triggers
}

// Counts returns the number of online alarms and registered triggers.
func (r *Registry) Counts() (alarms, triggers int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.alarms), len(r.triggers)
}

// Reset forgets every alarm and trigger.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	alarms, triggers := len(r.alarms), len(r.triggers)
	r.alarms = make(map[device.ID]device.Alarm)
	r.triggers = make(map[string]*Trigger)

	r.logger.Info("registry reset", "alarms", alarms, "triggers", triggers)
}

// sortTriggers orders triggers by creation time then ID.
func sortTriggers(triggers []Trigger) {
	sort.Slice(triggers, func(i, j int) bool {
		return triggerLess(&triggers[i], &triggers[j])
	})
}

func triggerLess(a, b *Trigger) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
