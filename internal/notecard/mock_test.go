package notecard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// MockTransport answers requests from a script keyed by request name.
type MockTransport struct {
	mu        sync.Mutex
	responses map[string][]string
	failures  map[string]error
	requests  []Request
	closed    bool
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses: make(map[string][]string),
		failures:  make(map[string]error),
	}
}

// Respond queues raw response lines for name. The last one repeats.
func (m *MockTransport) Respond(name string, lines ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[name] = append(m.responses[name], lines...)
}

func (m *MockTransport) Fail(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[name] = err
}

func (m *MockTransport) Exchange(_ context.Context, request []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var req Request
	if err := json.Unmarshal(request, &req); err != nil {
		return nil, err
	}
	m.requests = append(m.requests, req)

	name := req.Name()
	if err := m.failures[name]; err != nil {
		return nil, err
	}
	queue := m.responses[name]
	if len(queue) == 0 {
		return []byte("{}"), nil
	}
	line := queue[0]
	if len(queue) > 1 {
		m.responses[name] = queue[1:]
	}
	return []byte(line), nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("already closed")
	}
	m.closed = true
	return nil
}

func (m *MockTransport) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
