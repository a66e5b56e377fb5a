package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-notecard/internal/infrastructure/database"
)

// Health check bounds.
const (
	healthCheckTimeout = 3 * time.Second
	defaultCycleLimit  = 20
	maxCycleLimit      = 500
)

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status      string            `json:"status"`
	Version     string            `json:"version"`
	QueueDepth  int               `json:"queue_depth"`
	NextUpload  *time.Time        `json:"next_upload,omitempty"`
	LastFlush   *time.Time        `json:"last_flush,omitempty"`
	PendingSync bool              `json:"pending_sync"`
	LastError   string            `json:"last_error,omitempty"`
	Components  map[string]string `json:"components,omitempty"`
}

// handleHealth reports relay health. Status is "degraded" when a hub.sync
// is pending or an optional component check fails; the HTTP status stays
// 200 since ingestion keeps working.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:     "ok",
		Version:    s.version,
		QueueDepth: s.queue.Len(),
	}

	if s.scheduler != nil {
		st := s.scheduler.Status()
		resp.NextUpload = &st.NextUpload
		if !st.LastFlush.IsZero() {
			resp.LastFlush = &st.LastFlush
		}
	}
	if s.coordinator != nil {
		st := s.coordinator.Stats()
		resp.PendingSync = st.PendingSync
		resp.LastError = st.LastError
		if st.PendingSync {
			resp.Status = "degraded"
		}
	}

	if len(s.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		names := make([]string, 0, len(s.checks))
		for name := range s.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		resp.Components = make(map[string]string, len(names))
		for _, name := range names {
			if err := s.checks[name].HealthCheck(ctx); err != nil {
				resp.Components[name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Components[name] = "ok"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// FlushResponse is the body of POST /api/v1/flush.
type FlushResponse struct {
	Status     string    `json:"status"`
	QueueDepth int       `json:"queue_depth"`
	NextUpload time.Time `json:"next_upload"`
}

// handleFlush makes an upload due now. The scheduler picks it up on its next
// poll; an empty queue still does nothing.
func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "scheduler not running")
		return
	}

	s.scheduler.FlushNow()
	st := s.scheduler.Status()
	s.logger.Info("flush requested", "queue_depth", st.QueueDepth, "request_id", requestID(r))

	writeJSON(w, http.StatusAccepted, FlushResponse{
		Status:     "flush_requested",
		QueueDepth: st.QueueDepth,
		NextUpload: st.NextUpload,
	})
}

// handleCycles lists recent flush cycles from the journal.
func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "flush journal disabled")
		return
	}

	limit := defaultCycleLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxCycleLimit {
			writeBadRequest(w, "limit must be an integer between 1 and "+strconv.Itoa(maxCycleLimit))
			return
		}
		limit = n
	}

	cycles, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("reading flush journal failed", "error", err)
		writeInternalError(w, "failed to read flush journal")
		return
	}
	if cycles == nil {
		cycles = []database.CycleRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cycles": cycles,
		"count":  len(cycles),
	})
}
