package drift

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-notecard/internal/clock"
	"github.com/nerrad567/gray-logic-notecard/internal/notecard"
	"github.com/nerrad567/gray-logic-notecard/internal/reading"
)

// DefaultThreshold is the smallest offset treated as real drift.
const DefaultThreshold = 10 * time.Second

// Transactor is the part of a device session the corrector needs.
type Transactor interface {
	Transact(ctx context.Context, req notecard.Request) (notecard.Response, error)
}

// ClockSetter sets the host wall clock.
type ClockSetter interface {
	SetClock(t time.Time) error
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options configures a Corrector.
type Options struct {
	// Threshold below which offsets are clamped to zero. Default: 10s.
	Threshold time.Duration

	// CorrectHostClock enables best-effort host clock setting.
	CorrectHostClock bool

	// Setter changes the host clock. Default: the platform setter.
	Setter ClockSetter

	// Clock supplies host time. Default: the system clock.
	Clock clock.Clock
}

// Corrector computes and applies clock drift offsets.
type Corrector struct {
	threshold   float64
	correctHost bool
	setter      ClockSetter
	clock       clock.Clock

	logger   Logger
	loggerMu sync.RWMutex
}

// New returns a Corrector configured by opts.
func New(opts Options) *Corrector {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Setter == nil {
		opts.Setter = SystemClockSetter{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	return &Corrector{
		threshold:   opts.Threshold.Seconds(),
		correctHost: opts.CorrectHostClock,
		setter:      opts.Setter,
		clock:       opts.Clock,
	}
}

// SetLogger sets the logger.
func (c *Corrector) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	defer c.loggerMu.Unlock()
	c.logger = logger
}

// ComputeOffset asks the device for its time and returns the signed offset in
// seconds to add to host timestamps. It never fails: every problem degrades
// to an offset of zero.
//
// hostSet reports that the host clock was moved to device time during this
// call. Timestamps taken from then on need no correction, so later calls
// return an offset near zero.
func (c *Corrector) ComputeOffset(ctx context.Context, sess Transactor) (offset float64, hostSet bool) {
	resp, err := sess.Transact(ctx, notecard.NewRequest(notecard.ReqCardTime))
	if err != nil {
		c.log().Warn("card.time failed, skipping drift correction", "error", err)
		return 0, false
	}
	deviceTime, ok := resp.Time()
	if !ok {
		c.log().Info("card.time returned no time, skipping drift correction")
		return 0, false
	}

	offset = Clamp(deviceTime-clock.Seconds(c.clock.Now()), c.threshold)
	if offset == 0 {
		c.log().Debug("no time adjustment", "device_time", deviceTime)
		return 0, false
	}

	c.log().Info("clock drift detected", "offset_seconds", offset, "device_time", deviceTime)
	if c.correctHost {
		if err := c.setter.SetClock(clock.FromSeconds(deviceTime).UTC()); err != nil {
			c.log().Warn("host clock correction failed", "error", err)
		} else {
			c.log().Info("host clock set from device", "device_time", deviceTime)
			hostSet = true
		}
	}
	return offset, hostSet
}

// Clamp returns offset, or 0 when |offset| < threshold.
func Clamp(offset, threshold float64) float64 {
	if math.Abs(offset) < threshold {
		return 0
	}
	return offset
}

// Apply returns a copy of readings with each timestamp shifted by offset and
// rounded to one decimal place.
func Apply(offset float64, readings []reading.Reading) []reading.Reading {
	out := make([]reading.Reading, len(readings))
	for i, r := range readings {
		out[i] = r.WithTimestamp(Round1(r.Timestamp + offset))
	}
	return out
}

// Round1 rounds x to the nearest tenth, halves away from zero.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func (c *Corrector) log() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	if c.logger == nil {
		return nopLogger{}
	}
	return c.logger
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
