package notecard

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Notecard I2C framing.
//
// Writes are sent as [len, data...] chunks. Reads poll with a [0, n] request
// answered by [available, returned, data...]; n = 0 just asks how many bytes
// are waiting.
const (
	i2cMaxChunk     = 250
	i2cChunkDelay   = 20 * time.Millisecond
	i2cPollInterval = 50 * time.Millisecond
)

var hostInitOnce = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// i2cConn is the subset of *i2c.Dev the transport uses.
type i2cConn interface {
	Tx(w, r []byte) error
}

type i2cTransport struct {
	dev     i2cConn
	closer  func() error
	timeout time.Duration
	mu      sync.Mutex
}

func openI2C(_ context.Context, cfg Config) (Transport, error) {
	if err := hostInitOnce(); err != nil {
		return nil, fmt.Errorf("%w: periph host init: %w", ErrOpenFailed, err)
	}

	bus, err := i2creg.Open(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: i2c bus %q: %w", ErrOpenFailed, cfg.Endpoint, err)
	}

	addr := cfg.I2CAddress
	if addr == 0 {
		addr = DefaultI2CAddress
	}
	t := newI2CTransport(&i2c.Dev{Addr: addr, Bus: bus}, bus.Close, cfg.responseTimeout())

	// Probe: a zero-length poll succeeds only if the device ACKs.
	if _, err := t.poll(0); err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("%w: i2c address 0x%02x: %w", ErrOpenFailed, addr, err)
	}
	return t, nil
}

func newI2CTransport(dev i2cConn, closer func() error, timeout time.Duration) *i2cTransport {
	return &i2cTransport{dev: dev, closer: closer, timeout: timeout}
}

func (t *i2cTransport) Exchange(ctx context.Context, request []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for off := 0; off < len(request); off += i2cMaxChunk {
		end := min(off+i2cMaxChunk, len(request))
		chunk := make([]byte, 0, end-off+1)
		chunk = append(chunk, byte(end-off))
		chunk = append(chunk, request[off:end]...)
		if err := t.dev.Tx(chunk, nil); err != nil {
			return nil, fmt.Errorf("write chunk: %w", err)
		}
		if end < len(request) {
			time.Sleep(i2cChunkDelay)
		}
	}

	deadline := exchangeDeadline(ctx, t.timeout)
	var line []byte
	want := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}

		data, err := t.poll(want)
		if err != nil {
			return nil, err
		}
		available := int(data.available)
		line = append(line, data.payload...)

		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			return bytes.TrimSpace(line[:i]), nil
		}
		if len(line) > maxResponseSize {
			return nil, fmt.Errorf("response exceeds %d bytes", maxResponseSize)
		}

		want = min(available, i2cMaxChunk)
		if want == 0 {
			time.Sleep(i2cPollInterval)
		}
	}
}

type i2cRead struct {
	available byte
	payload   []byte
}

// poll asks for up to n bytes and returns what the device sent.
func (t *i2cTransport) poll(n int) (i2cRead, error) {
	if err := t.dev.Tx([]byte{0, byte(n)}, nil); err != nil {
		return i2cRead{}, fmt.Errorf("read request: %w", err)
	}
	buf := make([]byte, 2+n)
	if err := t.dev.Tx(nil, buf); err != nil {
		return i2cRead{}, fmt.Errorf("read: %w", err)
	}
	returned := int(buf[1])
	if returned > n {
		return i2cRead{}, fmt.Errorf("device returned %d bytes, asked for %d", returned, n)
	}
	return i2cRead{available: buf[0], payload: buf[2 : 2+returned]}, nil
}

func (t *i2cTransport) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer()
}
