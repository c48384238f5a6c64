package automation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/nerrad567/skynet-core/internal/device"
)

// Validation constants.
const (
	maxNameLength = 100
	maxAlarms     = 100
)

// Pre-computed validation set for O(1) severity lookups.
var validSeverities map[Severity]struct{}

func init() {
	validSeverities = make(map[Severity]struct{}, len(AllSeverities()))
	for _, s := range AllSeverities() {
		validSeverities[s] = struct{}{}
	}
}

// ValidateTrigger checks everything about t that does not depend on
// registry state. Alarm existence is checked by Registry.AddTrigger.
func ValidateTrigger(t *Trigger) error {
	if t == nil {
		return ErrInvalidTrigger
	}

	if len(t.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}

	if err := t.Sensor.Validate(); err != nil {
		return fmt.Errorf("%w: sensor: %w", ErrInvalidTrigger, err)
	}

	if err := ValidateCondition(t.Condition); err != nil {
		return err
	}

	if err := ValidateSeverity(t.Severity); err != nil {
		return err
	}

	if !t.TriggerAll && len(t.Alarms) == 0 {
		return ErrNoAlarms
	}
	if len(t.Alarms) > maxAlarms {
		return fmt.Errorf("%w: exceeds maximum of %d alarms", ErrInvalidTrigger, maxAlarms)
	}
	for i, a := range t.Alarms {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%w: alarm[%d]: %w", ErrInvalidTrigger, i, err)
		}
	}

	return nil
}

// ValidateCondition checks that c is set and, if it can validate itself,
// that it is well formed.
func ValidateCondition(c Condition) error {
	if c == nil {
		return fmt.Errorf("%w: condition is required", ErrInvalidCondition)
	}
	if v, ok := c.(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}

// ValidateSeverity checks s against the known levels.
func ValidateSeverity(s Severity) error {
	if _, ok := validSeverities[s]; !ok {
		return fmt.Errorf("%w: %q (want one of %s)", ErrInvalidSeverity, s, severityList())
	}
	return nil
}

func severityList() string {
	names := make([]string, 0, len(validSeverities))
	for _, s := range AllSeverities() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

// normaliseAlarms removes duplicates and sorts ids by type then name.
func normaliseAlarms(ids []device.ID) []device.ID {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[device.ID]struct{}, len(ids))
	out := make([]device.ID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sortIDs(out)
	return out
}

func sortIDs(ids []device.ID) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Type != ids[j].Type {
			return ids[i].Type < ids[j].Type
		}
		return ids[i].Name < ids[j].Name
	})
}

// GenerateID creates a new UUID for a trigger.
func GenerateID() string {
	return uuid.New().String()
}
