package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/skynet-core/internal/automation"
	"github.com/nerrad567/skynet-core/internal/device"
)

// conditionRequest is the JSON form of a threshold condition.
type conditionRequest struct {
	Operator string   `json:"operator"`
	Value    *float64 `json:"value"`
}

// createTriggerRequest is the body of POST /triggers.
type createTriggerRequest struct {
	ID         string            `json:"id,omitempty"`
	Name       string            `json:"name,omitempty"`
	Sensor     device.ID         `json:"sensor"`
	Condition  *conditionRequest `json:"condition"`
	Alarms     []device.ID       `json:"alarms"`
	TriggerAll bool              `json:"trigger_all"`
	Severity   string            `json:"severity"`
}

func (req *createTriggerRequest) toTrigger() (automation.Trigger, error) {
	t := automation.Trigger{
		ID:         strings.TrimSpace(req.ID),
		Name:       strings.TrimSpace(req.Name),
		Sensor:     req.Sensor,
		Alarms:     req.Alarms,
		TriggerAll: req.TriggerAll,
		Severity:   automation.Severity(strings.ToLower(req.Severity)),
	}
	if req.Condition == nil || req.Condition.Value == nil {
		return t, errors.New("condition with operator and value is required")
	}
	t.Condition = automation.Threshold{
		Operator: automation.Operator(strings.ToLower(req.Condition.Operator)),
		Value:    *req.Condition.Value,
	}
	return t, nil
}

func (s *Server) handleListAlarms(w http.ResponseWriter, _ *http.Request) {
	alarms := s.triggers.AllAlarms()
	writeJSON(w, http.StatusOK, map[string]any{
		"alarms": alarms,
		"count":  len(alarms),
	})
}

// handleListTriggers lists all triggers, or those of one sensor when both
// sensor_type and sensor_name are given.
func (s *Server) handleListTriggers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sensorType, sensorName := q.Get("sensor_type"), q.Get("sensor_name")

	var triggers []automation.Trigger
	switch {
	case sensorType == "" && sensorName == "":
		triggers = s.triggers.AllTriggers()
	case sensorType == "" || sensorName == "":
		writeBadRequest(w, "sensor_type and sensor_name must be given together")
		return
	default:
		triggers = s.triggers.TriggersForSensor(device.NewID(sensorType, sensorName))
	}

	if triggers == nil {
		triggers = []automation.Trigger{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"triggers": triggers,
		"count":    len(triggers),
	})
}

func (s *Server) handleGetTrigger(w http.ResponseWriter, r *http.Request) {
	t, err := s.triggers.Trigger(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, automation.ErrTriggerNotFound) {
			writeNotFound(w, "trigger not found")
			return
		}
		writeInternalError(w, "failed to get trigger")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleCreateTrigger registers a trigger. Posting an ID that already
// exists returns the existing trigger with 200.
func (s *Server) handleCreateTrigger(w http.ResponseWriter, r *http.Request) {
	var req createTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	t, err := req.toTrigger()
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if t.ID != "" {
		if existing, err := s.triggers.Trigger(t.ID); err == nil {
			writeJSON(w, http.StatusOK, existing)
			return
		}
	}

	created, err := s.triggers.AddTrigger(t)
	if err != nil {
		switch {
		case errors.Is(err, automation.ErrUnknownAlarm):
			writeConflict(w, err.Error())
		case errors.Is(err, automation.ErrInvalidTrigger),
			errors.Is(err, automation.ErrInvalidName),
			errors.Is(err, automation.ErrInvalidCondition),
			errors.Is(err, automation.ErrInvalidSeverity),
			errors.Is(err, automation.ErrNoAlarms):
			writeValidationError(w, err.Error())
		default:
			s.logger.Error("failed to add trigger", "error", err)
			writeInternalError(w, "failed to add trigger")
		}
		return
	}

	s.logger.Info("trigger created via API",
		"trigger_id", created.ID,
		"sensor", created.Sensor.String(),
		"subject", r.Context().Value(ctxKeySubject),
	)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteTrigger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.triggers.RemoveTrigger(id) {
		writeNotFound(w, "trigger not found")
		return
	}

	s.logger.Info("trigger deleted via API", "trigger_id", id, "subject", r.Context().Value(ctxKeySubject))
	w.WriteHeader(http.StatusNoContent)
}
