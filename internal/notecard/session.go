package notecard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Session is one open connection to the device.
type Session struct {
	transport Transport
	stats     *counters

	mu     sync.Mutex
	closed bool
}

func newSession(t Transport, stats *counters) *Session {
	if stats == nil {
		stats = &counters{}
	}
	return &Session{transport: t, stats: stats}
}

// NewSession wraps an already-open transport.
func NewSession(t Transport) *Session {
	return newSession(t, nil)
}

// Transact sends req and returns the device's response.
//
// It fails with a *TransportError when the exchange fails, the response is
// not JSON, or the device sets "err". It does not retry.
func (s *Session) Transact(ctx context.Context, req Request) (Response, error) {
	name := req.Name()
	line, err := req.encode()
	if err != nil {
		return nil, &TransportError{Req: name, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &TransportError{Req: name, Err: ErrSessionClosed}
	}

	s.stats.transactions.Add(1)
	s.stats.lastActivity.Store(time.Now().Unix())

	raw, err := s.transport.Exchange(ctx, line)
	if err != nil {
		s.stats.transactionFailures.Add(1)
		return nil, &TransportError{Req: name, Err: err}
	}

	resp, err := decodeResponse(raw)
	if err != nil {
		s.stats.transactionFailures.Add(1)
		return nil, &TransportError{Req: name, Err: err}
	}
	if msg := resp.Err(); msg != "" {
		s.stats.transactionFailures.Add(1)
		return resp, &TransportError{Req: name, Err: fmt.Errorf("%w: %s", ErrDeviceError, msg)}
	}
	return resp, nil
}

// Close releases the transport. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.transport.Close(); err != nil && !errors.Is(err, ErrSessionClosed) {
		return fmt.Errorf("notecard: close: %w", err)
	}
	return nil
}
