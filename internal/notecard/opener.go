package notecard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-notecard/internal/clock"
	"github.com/nerrad567/gray-logic-notecard/internal/retry"
)

// Config describes how to reach the device.
type Config struct {
	// Kind is the transport, "serial" (default) or "i2c".
	Kind Kind

	// Endpoint is the serial device path or the periph I2C bus name.
	// An empty I2C bus name selects the first bus.
	Endpoint string

	// BaudRate applies to serial transports. Default: 9600.
	BaudRate int

	// I2CAddress applies to I2C transports. Default: 0x17.
	I2CAddress uint16

	// ResponseTimeout bounds each transaction. Default: 30 seconds.
	ResponseTimeout time.Duration

	// RetryInterval is the fixed delay between open attempts. Default: 3 seconds.
	RetryInterval time.Duration
}

func (c Config) responseTimeout() time.Duration {
	if c.ResponseTimeout > 0 {
		return c.ResponseTimeout
	}
	return DefaultResponseTimeout
}

// Stats holds operational statistics.
type Stats struct {
	Opens               uint64    `json:"opens"`
	OpenFailures        uint64    `json:"open_failures"`
	Transactions        uint64    `json:"transactions"`
	TransactionFailures uint64    `json:"transaction_failures"`
	LastActivity        time.Time `json:"last_activity"`
}

type counters struct {
	opens               atomic.Uint64
	openFailures        atomic.Uint64
	transactions        atomic.Uint64
	transactionFailures atomic.Uint64
	lastActivity        atomic.Int64 // Unix timestamp
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// SessionOpener acquires device sessions. Opener implements it; tests
// substitute their own.
type SessionOpener interface {
	Open(ctx context.Context) (*Session, error)
}

var _ SessionOpener = (*Opener)(nil)

// Opener opens fresh sessions, retrying until the device answers.
type Opener struct {
	cfg   Config
	dial  DialFunc
	clock clock.Clock
	stats counters

	logger   Logger
	loggerMu sync.RWMutex
}

// NewOpener returns an Opener for cfg using the real transports and clock.
func NewOpener(cfg Config) *Opener {
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = DefaultOpenRetryInterval
	}
	return &Opener{cfg: cfg, dial: Dial, clock: clock.System{}}
}

// WithDialer replaces the transport dialer. Intended for tests and
// alternative transports.
func (o *Opener) WithDialer(dial DialFunc) *Opener {
	o.dial = dial
	return o
}

// WithClock replaces the clock used for retry backoff.
func (o *Opener) WithClock(clk clock.Clock) *Opener {
	o.clock = clk
	return o
}

// SetLogger sets the logger for open failures.
func (o *Opener) SetLogger(logger Logger) {
	o.loggerMu.Lock()
	defer o.loggerMu.Unlock()
	o.logger = logger
}

// Open returns a live session, retrying every RetryInterval for as long as
// the device is unreachable. Each failure is logged.
//
// The only error it returns is ctx.Err(), when the context ends while
// waiting; device failures are never surfaced.
func (o *Opener) Open(ctx context.Context) (*Session, error) {
	var sess *Session
	policy := retry.Fixed(o.cfg.RetryInterval, o.clock)

	err := policy.Do(ctx, func(int) error {
		t, err := o.dial(ctx, o.cfg)
		if err != nil {
			return err
		}
		sess = newSession(t, &o.stats)
		return nil
	}, func(attempt int, err error) {
		o.stats.openFailures.Add(1)
		o.logWarn("notecard open failed, retrying",
			"attempt", attempt,
			"kind", string(o.cfg.Kind),
			"endpoint", o.cfg.Endpoint,
			"retry_in", o.cfg.RetryInterval.String(),
			"error", err,
		)
	})
	if err != nil {
		return nil, err
	}

	o.stats.opens.Add(1)
	o.stats.lastActivity.Store(time.Now().Unix())
	return sess, nil
}

// Stats returns current operational statistics, including transactions run
// on sessions this opener produced.
func (o *Opener) Stats() Stats {
	return Stats{
		Opens:               o.stats.opens.Load(),
		OpenFailures:        o.stats.openFailures.Load(),
		Transactions:        o.stats.transactions.Load(),
		TransactionFailures: o.stats.transactionFailures.Load(),
		LastActivity:        time.Unix(o.stats.lastActivity.Load(), 0),
	}
}

func (o *Opener) logWarn(msg string, keysAndValues ...any) {
	o.loggerMu.RLock()
	logger := o.logger
	o.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}
