package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nerrad567/gray-logic-notecard/internal/ingest"
	"github.com/nerrad567/gray-logic-notecard/internal/reading"
)

// IngestResponse is the JSON reply of POST /api/v1/readings.
type IngestResponse struct {
	Accepted int `json:"accepted"`
}

// handleIngestText accepts a readings payload and replies "<n>\n".
func (s *Server) handleIngestText(w http.ResponseWriter, r *http.Request) {
	n, ok := s.ingest(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%d\n", n) //nolint:errcheck // Best-effort write
}

// handleIngestJSON accepts a readings payload and replies {"accepted": n}.
func (s *Server) handleIngestJSON(w http.ResponseWriter, r *http.Request) {
	n, ok := s.ingest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, IngestResponse{Accepted: n})
}

// ingest decodes the body and enqueues every reading. On failure it writes
// the error response, enqueues nothing and returns false.
func (s *Server) ingest(w http.ResponseWriter, r *http.Request) (int, bool) {
	readings, err := ingest.Decode(r.Body)
	if err != nil {
		s.rejected.Add(1)

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return 0, false
		}

		s.logger.Warn("rejected readings payload", "error", err, "request_id", requestID(r))
		writeBadRequest(w, err.Error())
		return 0, false
	}

	s.enqueue(readings)
	return len(readings), true
}

func (s *Server) enqueue(rs []reading.Reading) {
	if len(rs) == 0 {
		return
	}
	s.queue.EnqueueAll(rs)
	s.accepted.Add(uint64(len(rs)))
}
