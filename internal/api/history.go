package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/skynet-core/internal/device"
	"github.com/nerrad567/skynet-core/internal/history"
)

// handleListHistory lists recorded firings, newest first.
//
// Query parameters: trigger_id, sensor_type + sensor_name, since (RFC 3339),
// limit, offset.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "trigger history is disabled")
		return
	}

	filter, msg := parseHistoryFilter(r)
	if msg != "" {
		writeBadRequest(w, msg)
		return
	}

	result, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list trigger history", "error", err)
		writeInternalError(w, "failed to list trigger history")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "trigger history is disabled")
		return
	}

	e, err := s.history.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, history.ErrEventNotFound) {
			writeNotFound(w, "history event not found")
			return
		}
		s.logger.Error("failed to get history event", "error", err)
		writeInternalError(w, "failed to get history event")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// parseHistoryFilter returns the filter, or a non-empty message describing
// the first invalid parameter.
func parseHistoryFilter(r *http.Request) (history.Filter, string) {
	q := r.URL.Query()
	filter := history.Filter{TriggerID: q.Get("trigger_id")}

	sensorType, sensorName := q.Get("sensor_type"), q.Get("sensor_name")
	if (sensorType == "") != (sensorName == "") {
		return filter, "sensor_type and sensor_name must be given together"
	}
	filter.Sensor = device.NewID(sensorType, sensorName)

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, "since must be an RFC 3339 timestamp"
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, "limit must be a non-negative integer"
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, "offset must be a non-negative integer"
		}
		filter.Offset = n
	}
	return filter, ""
}
