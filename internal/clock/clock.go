// Package clock abstracts wall-clock reads and sleeps so retry loops and the
// upload schedule can be driven deterministically in tests.
package clock

import (
	"context"
	"math"
	"sync"
	"time"
)

// Clock reports the current time and waits.
type Clock interface {
	Now() time.Time
	// Sleep waits for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// System is the real wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time { return time.Now() }

// Sleep blocks for d or until ctx is cancelled.
func (System) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Manual is a Clock whose time only moves when Sleep or Advance is called.
// Sleep returns immediately after advancing the clock by d.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewManual returns a Manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Sleep records d and advances the clock by it.
func (m *Manual) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.sleeps = append(m.sleeps, d)
	m.now = m.now.Add(d)
	m.mu.Unlock()
	return nil
}

// Advance moves the clock forward by d without recording a sleep.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Sleeps returns a copy of every duration passed to Sleep.
func (m *Manual) Sleeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.sleeps))
	copy(out, m.sleeps)
	return out
}

// Seconds converts t to float seconds since the Unix epoch.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// FromSeconds converts float seconds since the Unix epoch to a time.Time.
func FromSeconds(s float64) time.Time {
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(math.Round(frac*float64(time.Second))))
}
