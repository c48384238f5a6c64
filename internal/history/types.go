package history

import (
	"time"

	"github.com/nerrad567/skynet-core/internal/device"
)

// Event is one recorded trigger firing.
type Event struct {
	ID          string      `json:"id"`
	TriggerID   string      `json:"trigger_id"`
	TriggerName string      `json:"trigger_name,omitempty"`
	Sensor      device.ID   `json:"sensor"`
	Value       float64     `json:"value"`
	Severity    string      `json:"severity"`
	Targets     []device.ID `json:"targets"`
	ReadingAt   time.Time   `json:"reading_at"`
	FiredAt     time.Time   `json:"fired_at"`
}

// Filter selects history events. Zero fields match everything.
type Filter struct {
	TriggerID string
	Sensor    device.ID // both parts must be set to filter by sensor
	Since     time.Time
	Limit     int // default 50, max 500
	Offset    int
}

// Page size bounds for List.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ListResult is one page of history, newest first.
type ListResult struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

func (f *Filter) normalise() {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
