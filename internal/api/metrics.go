package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/skynet-core/internal/infrastructure/mqtt"
)

// SystemMetrics is the /metrics response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          *MQTTMetrics    `json:"mqtt,omitempty"`
	Registry      RegistryMetrics `json:"registry"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int    `json:"connected_clients"`
	DroppedFrames    uint64 `json:"dropped_frames"`
}

// MQTTMetrics contains bus connection statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
	mqtt.Stats
}

// RegistryMetrics counts online alarms and registered triggers.
type RegistryMetrics struct {
	Alarms   int `json:"alarms"`
	Triggers int `json:"triggers"`
}

const bytesPerMB = 1024 * 1024

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	alarms, triggers := s.triggers.Counts()

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(mem.Alloc) / bytesPerMB,
			MemoryTotalMB: float64(mem.TotalAlloc) / bytesPerMB,
			NumGC:         mem.NumGC,
		},
		WebSocket: WSMetrics{ConnectedClients: s.hub.ClientCount(), DroppedFrames: s.hub.Dropped()},
		Registry:  RegistryMetrics{Alarms: alarms, Triggers: triggers},
	}

	if s.bus != nil {
		metrics.MQTT = &MQTTMetrics{
			Connected: s.bus.IsConnected(),
			Stats:     s.bus.Stats(),
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
