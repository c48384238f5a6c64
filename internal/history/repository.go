package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/skynet-core/internal/device"
)

// Repository stores and queries trigger firings.
type Repository interface {
	Create(ctx context.Context, e *Event) error
	Get(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository implements Repository on the trigger_events table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on db. The trigger_history
// migration must have been applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `id, trigger_id, trigger_name, sensor_type, sensor_name, value, severity, targets, reading_at, fired_at`

// Create inserts e. ID and FiredAt are filled in when empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Event) error {
	if e.TriggerID == "" || e.Severity == "" {
		return fmt.Errorf("%w: trigger_id and severity are required", ErrInvalidEvent)
	}
	if err := e.Sensor.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if e.ID == "" {
		e.ID = "evt-" + uuid.NewString()
	}
	if e.FiredAt.IsZero() {
		e.FiredAt = time.Now().UTC()
	}
	if e.Targets == nil {
		e.Targets = []device.ID{}
	}

	targets, err := json.Marshal(e.Targets)
	if err != nil {
		return fmt.Errorf("marshalling targets: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO trigger_events (`+selectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TriggerID, e.TriggerName,
		e.Sensor.Type, e.Sensor.Name,
		e.Value, e.Severity, string(targets),
		formatTime(e.ReadingAt), formatTime(e.FiredAt),
	)
	if err != nil {
		return fmt.Errorf("inserting trigger event: %w", err)
	}
	return nil
}

// Get returns the event with the given ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Event, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM trigger_events WHERE id = ?`, id)

	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List returns events matching filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	filter.normalise()

	var conditions []string
	var args []any

	if filter.TriggerID != "" {
		conditions = append(conditions, "trigger_id = ?")
		args = append(args, filter.TriggerID)
	}
	if filter.Sensor.Type != "" && filter.Sensor.Name != "" {
		conditions = append(conditions, "sensor_type = ? AND sensor_name = ?")
		args = append(args, filter.Sensor.Type, filter.Sensor.Name)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "fired_at >= ?")
		args = append(args, formatTime(filter.Since))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM trigger_events " + where //nolint:gosec // WHERE built from parameterised conditions
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting trigger events: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions
		"SELECT %s FROM trigger_events %s ORDER BY fired_at DESC, id DESC LIMIT ? OFFSET ?",
		selectColumns, where,
	)
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying trigger events: %w", err)
	}
	defer rows.Close()

	result := &ListResult{
		Events: make([]Event, 0, filter.Limit),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result.Events = append(result.Events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trigger events: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*Event, error) {
	var e Event
	var targets, readingAt, firedAt string
	err := s.Scan(
		&e.ID, &e.TriggerID, &e.TriggerName,
		&e.Sensor.Type, &e.Sensor.Name,
		&e.Value, &e.Severity, &targets,
		&readingAt, &firedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning trigger event: %w", err)
	}

	if err := json.Unmarshal([]byte(targets), &e.Targets); err != nil {
		return nil, fmt.Errorf("decoding targets of %s: %w", e.ID, err)
	}
	e.ReadingAt = parseTime(readingAt)
	e.FiredAt = parseTime(firedAt)
	return &e, nil
}

// Timestamps are stored as fixed-width RFC 3339 in UTC so that they sort
// lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
