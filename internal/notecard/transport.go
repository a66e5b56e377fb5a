package notecard

import (
	"context"
	"fmt"
	"time"
)

// Kind selects the physical transport.
type Kind string

// Supported transport kinds.
const (
	KindSerial Kind = "serial"
	KindI2C    Kind = "i2c"
)

// Default transport settings.
const (
	// DefaultSerialEndpoint is the USB-serial device the Notecard usually
	// enumerates as.
	DefaultSerialEndpoint = "/dev/ttyUSB0"

	// DefaultBaudRate is the Notecard's factory UART speed.
	DefaultBaudRate = 9600

	// DefaultI2CAddress is the Notecard's 7-bit bus address.
	DefaultI2CAddress = 0x17

	// DefaultResponseTimeout bounds a single transaction.
	DefaultResponseTimeout = 30 * time.Second

	// DefaultOpenRetryInterval is the fixed delay between open attempts.
	DefaultOpenRetryInterval = 3 * time.Second

	// maxResponseSize caps a response line to guard against a babbling bus.
	maxResponseSize = 64 * 1024
)

// Transport carries one newline-terminated request to the device and returns
// its newline-terminated response, without the trailing newline.
type Transport interface {
	Exchange(ctx context.Context, request []byte) ([]byte, error)
	Close() error
}

// DialFunc opens a transport described by cfg.
type DialFunc func(ctx context.Context, cfg Config) (Transport, error)

// Dial opens the transport selected by cfg.Kind.
func Dial(ctx context.Context, cfg Config) (Transport, error) {
	switch cfg.Kind {
	case KindSerial, "":
		return openSerial(cfg)
	case KindI2C:
		return openI2C(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransport, cfg.Kind)
	}
}

// exchangeDeadline returns the earlier of the context deadline and now+timeout.
func exchangeDeadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return deadline
}
