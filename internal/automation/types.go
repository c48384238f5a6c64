package automation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/skynet-core/internal/device"
)

// Trigger binds a condition on one sensor to a set of alarms.
//
// When TriggerAll is set the Alarms list is ignored and every alarm online
// at the time of firing is targeted. Otherwise Alarms is never empty while
// the trigger is registered: removing its last alarm removes the trigger.
type Trigger struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	// Source sensor and rule
	Sensor    device.ID `json:"sensor"`
	Condition Condition `json:"condition"`

	// Targets
	Alarms     []device.ID `json:"alarms"`
	TriggerAll bool        `json:"trigger_all"`
	Severity   Severity    `json:"severity"`

	// State, updated on every evaluation of the sensor
	Triggered bool       `json:"triggered"`
	LastFired *time.Time `json:"last_fired,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// References reports whether the trigger explicitly targets alarm id.
func (t *Trigger) References(id device.ID) bool {
	for _, a := range t.Alarms {
		if a == id {
			return true
		}
	}
	return false
}

// DeepCopy creates an independent copy of the Trigger.
// Condition values are treated as immutable and shared.
func (t *Trigger) DeepCopy() *Trigger {
	if t == nil {
		return nil
	}

	cpy := *t
	if t.Alarms != nil {
		cpy.Alarms = make([]device.ID, len(t.Alarms))
		copy(cpy.Alarms, t.Alarms)
	}
	if t.LastFired != nil {
		v := *t.LastFired
		cpy.LastFired = &v
	}
	return &cpy
}

// Severity is the alarm level sent as the command payload.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AllSeverities returns all valid severity levels, lowest first.
func AllSeverities() []Severity {
	return []Severity{
		SeverityLow,
		SeverityMedium,
		SeverityHigh,
		SeverityCritical,
	}
}

// Payload returns the command payload for alarms.
func (s Severity) Payload() []byte {
	return []byte(s)
}

// Condition decides whether a sensor reading fires a trigger.
// Implementations must be safe to call concurrently and must not retain s.
type Condition interface {
	IsTriggeredBy(s device.Sensor) bool
}

// Operator compares a reading with a threshold.
type Operator string

const (
	OperatorAbove Operator = "above"
	OperatorBelow Operator = "below"
)

// Threshold fires when the sensor value is strictly above or below Value.
type Threshold struct {
	Operator Operator `json:"operator"`
	Value    float64  `json:"value"`
}

// Above is shorthand for a Threshold with OperatorAbove.
func Above(v float64) Threshold {
	return Threshold{Operator: OperatorAbove, Value: v}
}

// Below is shorthand for a Threshold with OperatorBelow.
func Below(v float64) Threshold {
	return Threshold{Operator: OperatorBelow, Value: v}
}

// IsTriggeredBy implements Condition.
func (t Threshold) IsTriggeredBy(s device.Sensor) bool {
	switch t.Operator {
	case OperatorAbove:
		return s.Value > t.Value
	case OperatorBelow:
		return s.Value < t.Value
	default:
		return false
	}
}

// Validate checks the operator.
func (t Threshold) Validate() error {
	switch t.Operator {
	case OperatorAbove, OperatorBelow:
		return nil
	default:
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, t.Operator)
	}
}

func (t Threshold) String() string {
	return fmt.Sprintf("%s %g", t.Operator, t.Value)
}

// ConditionFunc adapts a function to Condition.
type ConditionFunc func(s device.Sensor) bool

// IsTriggeredBy calls f(s).
func (f ConditionFunc) IsTriggeredBy(s device.Sensor) bool {
	return f(s)
}

// MarshalJSON encodes a function condition as {"type":"custom"}.
func (f ConditionFunc) MarshalJSON() ([]byte, error) {
	return []byte(`{"type":"custom"}`), nil
}

func (f ConditionFunc) String() string {
	return "custom"
}

// customCondition is the JSON form of a Condition that cannot encode itself.
type customCondition struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// MarshalJSON encodes the trigger. A condition that fails to encode is
// written as {"type":"custom"} so snapshots and events always serialise.
func (t Trigger) MarshalJSON() ([]byte, error) {
	type plain Trigger
	cond, err := json.Marshal(t.Condition)
	if err != nil {
		c := customCondition{Type: "custom"}
		if s, ok := t.Condition.(fmt.Stringer); ok {
			c.Description = s.String()
		}
		if cond, err = json.Marshal(c); err != nil {
			return nil, err
		}
	}
	return json.Marshal(struct {
		plain
		Condition json.RawMessage `json:"condition"`
	}{plain: plain(t), Condition: cond})
}
