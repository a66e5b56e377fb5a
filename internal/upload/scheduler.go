package upload

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-notecard/internal/clock"
	"github.com/nerrad567/gray-logic-notecard/internal/retry"
)

// Scheduler defaults.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultRetryBackoff = 3 * time.Second
)

// Cycler runs one flush cycle. Coordinator implements it.
type Cycler interface {
	RunCycle(ctx context.Context) (Cycle, error)
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// Period is the minimum time between uploads.
	Period time.Duration

	// PollInterval is how often the due check runs. Default: 2 seconds.
	PollInterval time.Duration

	// RetryBackoff separates failed cycles. Default: 3 seconds.
	RetryBackoff time.Duration

	// Clock drives polling and backoff. Default: the system clock.
	Clock clock.Clock
}

// Status is a snapshot of scheduler state.
type Status struct {
	NextUpload    time.Time `json:"next_upload"`
	LastFlush     time.Time `json:"last_flush,omitzero"`
	Flushing      bool      `json:"flushing"`
	Flushes       uint64    `json:"flushes"`
	FailedCycles  uint64    `json:"failed_cycles"`
	Retries       uint64    `json:"retries"` // failed attempts in the current flush
	QueueDepth    int       `json:"queue_depth"`
	PeriodSeconds float64   `json:"period_seconds"`
}

// Scheduler decides when to flush and drives the Cycler until it succeeds.
type Scheduler struct {
	cycler Cycler
	queue  Queue
	cfg    SchedulerConfig

	mu         sync.Mutex
	nextUpload time.Time
	lastFlush  time.Time

	flushing     atomic.Bool
	flushes      atomic.Uint64
	failedCycles atomic.Uint64
	retries      atomic.Uint64

	logger   Logger
	loggerMu sync.RWMutex
}

// NewScheduler returns a Scheduler whose first upload is due one period
// from now.
func NewScheduler(cfg SchedulerConfig, cycler Cycler, queue Queue) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	return &Scheduler{
		cycler:     cycler,
		queue:      queue,
		cfg:        cfg,
		nextUpload: cfg.Clock.Now().Add(cfg.Period),
	}
}

// SetLogger sets the logger.
func (s *Scheduler) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	defer s.loggerMu.Unlock()
	s.logger = logger
}

// Run polls until ctx is cancelled. It always returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	s.log().Info("upload scheduler started",
		"period", s.cfg.Period.String(),
		"poll_interval", s.cfg.PollInterval.String(),
		"next_upload", s.NextUpload(),
	)
	for {
		if _, err := s.Tick(ctx); err != nil && ctx.Err() != nil {
			s.log().Info("upload scheduler stopped")
			return ctx.Err()
		}
		if err := s.cfg.Clock.Sleep(ctx, s.cfg.PollInterval); err != nil {
			s.log().Info("upload scheduler stopped")
			return err
		}
	}
}

// Tick runs one due check and, if due with readings waiting, flushes until a
// cycle succeeds. It reports whether a flush completed.
//
// A Tick that overlaps a running flush returns ErrFlushInProgress without
// doing anything.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	if !s.flushing.CompareAndSwap(false, true) {
		return false, ErrFlushInProgress
	}
	defer s.flushing.Store(false)

	if s.cfg.Clock.Now().Before(s.NextUpload()) || s.queue.IsEmpty() {
		return false, nil
	}

	s.log().Info("uploading", "queued", s.queue.Len())
	s.retries.Store(0)
	defer s.retries.Store(0)
	policy := retry.Fixed(s.cfg.RetryBackoff, s.cfg.Clock)
	err := policy.Do(ctx, func(int) error {
		_, err := s.cycler.RunCycle(ctx)
		if err != nil && !retryable(err) {
			return retry.Permanent(err)
		}
		return err
	}, func(attempt int, err error) {
		s.failedCycles.Add(1)
		s.retries.Add(1)
		s.log().Warn("upload failed, retrying",
			"attempt", attempt,
			"retry_in", s.cfg.RetryBackoff.String(),
			"error", err,
		)
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrNothingToUpload):
		return false, nil
	default:
		return false, err
	}

	now := s.cfg.Clock.Now()
	s.mu.Lock()
	s.lastFlush = now
	s.nextUpload = now.Add(s.cfg.Period)
	next := s.nextUpload
	s.mu.Unlock()
	s.flushes.Add(1)

	s.log().Info("next upload scheduled", "next_upload", next)
	return true, nil
}

// FlushNow makes an upload due immediately; the next poll flushes if the
// queue holds readings.
func (s *Scheduler) FlushNow() {
	now := s.cfg.Clock.Now()
	s.mu.Lock()
	if now.Before(s.nextUpload) {
		s.nextUpload = now
	}
	s.mu.Unlock()
}

// NextUpload returns the time the next upload becomes due.
func (s *Scheduler) NextUpload() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextUpload
}

// Status returns a snapshot of scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	next, last := s.nextUpload, s.lastFlush
	s.mu.Unlock()

	return Status{
		NextUpload:    next,
		LastFlush:     last,
		Flushing:      s.flushing.Load(),
		Flushes:       s.flushes.Load(),
		FailedCycles:  s.failedCycles.Load(),
		Retries:       s.retries.Load(),
		QueueDepth:    s.queue.Len(),
		PeriodSeconds: s.cfg.Period.Seconds(),
	}
}

func (s *Scheduler) log() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	if s.logger == nil {
		return nopLogger{}
	}
	return s.logger
}
