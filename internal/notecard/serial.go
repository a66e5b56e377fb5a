package notecard

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// serialReadSlice is the per-read timeout; the exchange loop re-checks the
// overall deadline between reads.
const serialReadSlice = 250 * time.Millisecond

type serialTransport struct {
	port    serial.Port
	timeout time.Duration
	mu      sync.Mutex
}

func openSerial(cfg Config) (Transport, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultSerialEndpoint
	}
	baud := cfg.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}

	port, err := serial.Open(endpoint, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("%w: serial %s: %w", ErrOpenFailed, endpoint, err)
	}
	if err := port.SetReadTimeout(serialReadSlice); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("%w: serial %s: set read timeout: %w", ErrOpenFailed, endpoint, err)
	}

	return &serialTransport{port: port, timeout: cfg.responseTimeout()}, nil
}

func (s *serialTransport) Exchange(ctx context.Context, request []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Drop anything left over from a previous, timed-out exchange.
	if err := s.port.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("reset input: %w", err)
	}
	if _, err := s.port.Write(request); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	deadline := exchangeDeadline(ctx, s.timeout)
	var line []byte
	buf := make([]byte, 256)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}

		n, err := s.port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		line = append(line, buf[:n]...)
		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			return bytes.TrimSpace(line[:i]), nil
		}
		if len(line) > maxResponseSize {
			return nil, fmt.Errorf("response exceeds %d bytes", maxResponseSize)
		}
	}
}

func (s *serialTransport) Close() error {
	return s.port.Close()
}
