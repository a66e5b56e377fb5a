package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/gray-logic-notecard/internal/notecard"
	"github.com/nerrad567/gray-logic-notecard/internal/upload"
)

// SystemMetrics represents the complete metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	HTTP          HTTPMetrics      `json:"http"`
	Upload        *UploadMetrics   `json:"upload,omitempty"`
	Notecard      *notecard.Stats  `json:"notecard,omitempty"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// HTTPMetrics counts ingestion traffic.
type HTTPMetrics struct {
	Requests         uint64 `json:"requests"`
	ReadingsAccepted uint64 `json:"readings_accepted"`
	PayloadsRejected uint64 `json:"payloads_rejected"`
}

// UploadMetrics combines scheduler and coordinator counters.
type UploadMetrics struct {
	Schedule        *upload.Status `json:"schedule,omitempty"`
	Cycles          uint64         `json:"cycles"`
	Failures        uint64         `json:"failures"`
	ReadingsSent    uint64         `json:"readings_sent"`
	ReadingsDropped uint64         `json:"readings_dropped"`
	PendingSync     bool           `json:"pending_sync"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// bytesPerMB converts byte counts for the runtime section.
const bytesPerMB = 1024 * 1024

// handleMetrics returns runtime, HTTP, upload and Notecard counters.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / bytesPerMB,
			MemoryTotalMB: float64(memStats.TotalAlloc) / bytesPerMB,
			NumGC:         memStats.NumGC,
		},
		HTTP: HTTPMetrics{
			Requests:         s.requests.Load(),
			ReadingsAccepted: s.accepted.Load(),
			PayloadsRejected: s.rejected.Load(),
		},
	}

	if s.scheduler != nil || s.coordinator != nil {
		um := &UploadMetrics{}
		if s.scheduler != nil {
			st := s.scheduler.Status()
			um.Schedule = &st
		}
		if s.coordinator != nil {
			cs := s.coordinator.Stats()
			um.Cycles = cs.Cycles
			um.Failures = cs.Failures
			um.ReadingsSent = cs.ReadingsSent
			um.ReadingsDropped = cs.ReadingsDropped
			um.PendingSync = cs.PendingSync
		}
		metrics.Upload = um
	}

	if s.opener != nil {
		st := s.opener.Stats()
		metrics.Notecard = &st
	}

	if s.pool != nil {
		dbStats := s.pool.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
