package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-notecard/internal/batch"
	"github.com/nerrad567/gray-logic-notecard/internal/clock"
	"github.com/nerrad567/gray-logic-notecard/internal/drift"
	"github.com/nerrad567/gray-logic-notecard/internal/notecard"
	"github.com/nerrad567/gray-logic-notecard/internal/reading"
)

// DefaultNotefile is the outbound notefile batches are added to.
const DefaultNotefile = "readings.qo"

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Queue is the reading buffer the coordinator drains.
type Queue interface {
	DrainAll() []reading.Reading
	Requeue(rs []reading.Reading)
	IsEmpty() bool
	Len() int
}

// Corrector computes the per-flush drift offset.
type Corrector interface {
	ComputeOffset(ctx context.Context, sess drift.Transactor) (offset float64, hostSet bool)
}

// Encoder builds the note.add body.
type Encoder interface {
	Encode(readings []reading.Reading) (batch.Body, error)
}

// Recorder observes finished cycles.
type Recorder interface {
	RecordCycle(ctx context.Context, c Cycle) error
}

// CycleStatus is the outcome of one cycle.
type CycleStatus string

// Cycle outcomes.
const (
	StatusOK     CycleStatus = "ok"
	StatusFailed CycleStatus = "failed"
	StatusEmpty  CycleStatus = "empty"
)

// Cycle describes one finished flush attempt.
type Cycle struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     CycleStatus

	// Readings holds the drift-corrected readings sent (or attempted).
	Readings []reading.Reading

	// Offset is the drift correction in seconds.
	Offset float64

	// Format is the encoded body format tag, when encoding ran.
	Format string

	// Err is the failure cause for StatusFailed.
	Err error
}

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	// Notefile receives the batches. Default: "readings.qo".
	Notefile string

	// RequeueOnFailure puts drained readings back at the head of the queue
	// when a cycle fails before note.add succeeds. When false they are
	// dropped.
	RequeueOnFailure bool

	// Clock stamps cycle records. Default: the system clock.
	Clock clock.Clock
}

// CoordinatorStats holds operational statistics.
type CoordinatorStats struct {
	Cycles          uint64
	Failures        uint64
	ReadingsSent    uint64
	ReadingsDropped uint64
	PendingSync     bool
	LastSuccess     time.Time
	LastError       string
}

// Coordinator runs flush cycles. It is not meant to run cycles concurrently;
// the Scheduler guarantees that.
type Coordinator struct {
	opener    notecard.SessionOpener
	corrector Corrector
	encoder   Encoder
	queue     Queue
	cfg       CoordinatorConfig

	// pendingSync is set once note.add succeeded and cleared by a
	// successful hub.sync.
	pendingSync atomic.Bool

	recorders []Recorder

	cycles          atomic.Uint64
	failures        atomic.Uint64
	readingsSent    atomic.Uint64
	readingsDropped atomic.Uint64
	lastSuccess     atomic.Int64 // Unix nanoseconds
	lastError       atomic.Value // string

	logger   Logger
	loggerMu sync.RWMutex
}

// NewCoordinator wires a coordinator.
func NewCoordinator(cfg CoordinatorConfig, opener notecard.SessionOpener, corrector Corrector, encoder Encoder, queue Queue) *Coordinator {
	if cfg.Notefile == "" {
		cfg.Notefile = DefaultNotefile
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	return &Coordinator{
		opener:    opener,
		corrector: corrector,
		encoder:   encoder,
		queue:     queue,
		cfg:       cfg,
	}
}

// AddRecorder registers an observer for finished cycles.
// Call before the scheduler starts.
func (c *Coordinator) AddRecorder(r Recorder) {
	c.recorders = append(c.recorders, r)
}

// SetLogger sets the logger.
func (c *Coordinator) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	defer c.loggerMu.Unlock()
	c.logger = logger
}

// RunCycle performs one flush cycle and returns its record.
//
// Returns:
//   - nil after hub.sync succeeded
//   - ErrNothingToUpload when the drain was empty
//   - ctx.Err() when the context ended while opening the session
//   - a wrapped ErrAddFailed, ErrSyncFailed or batch.ErrEncodingFailed
func (c *Coordinator) RunCycle(ctx context.Context) (Cycle, error) {
	cycle := Cycle{ID: uuid.NewString(), StartedAt: c.cfg.Clock.Now()}

	sess, err := c.opener.Open(ctx)
	if err != nil {
		return cycle, err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			c.log().Warn("closing notecard session failed", "error", err)
		}
	}()

	c.cycles.Add(1)
	offset, hostSet := c.corrector.ComputeOffset(ctx, sess)
	cycle.Offset = offset

	if c.pendingSync.Load() {
		if err := c.sync(ctx, sess); err != nil {
			return c.fail(ctx, cycle, err, nil)
		}
		c.log().Info("pending hub.sync completed", "cycle_id", cycle.ID)
	}

	drained := c.queue.DrainAll()
	if len(drained) == 0 {
		cycle.Status = StatusEmpty
		c.finish(ctx, &cycle)
		return cycle, ErrNothingToUpload
	}

	cycle.Readings = drift.Apply(cycle.Offset, drained)

	body, err := c.encoder.Encode(cycle.Readings)
	if err != nil {
		// Re-encoding the same readings would fail again, so they are
		// not requeued.
		c.readingsDropped.Add(uint64(len(drained)))
		c.log().Error("batch encoding failed, dropping readings", "cycle_id", cycle.ID, "readings", len(drained), "error", err)
		return c.fail(ctx, cycle, err, nil)
	}
	cycle.Format = body.Format

	add := notecard.NewRequest(notecard.ReqNoteAdd).
		With("file", c.cfg.Notefile).
		With("body", body.Map())
	if _, err := sess.Transact(ctx, add); err != nil {
		// Once the host clock reads device time the retry computes no
		// offset, so the batch goes back already corrected.
		unsent := drained
		if hostSet {
			unsent = cycle.Readings
		}
		return c.fail(ctx, cycle, fmt.Errorf("%w: %w", ErrAddFailed, err), unsent)
	}
	c.pendingSync.Store(true)

	if err := c.sync(ctx, sess); err != nil {
		return c.fail(ctx, cycle, err, nil)
	}

	c.readingsSent.Add(uint64(len(drained)))
	cycle.Status = StatusOK
	c.finish(ctx, &cycle)
	c.lastSuccess.Store(cycle.FinishedAt.UnixNano())

	c.log().Info("upload complete",
		"cycle_id", cycle.ID,
		"readings", len(drained),
		"offset_seconds", cycle.Offset,
		"format", cycle.Format,
	)
	return cycle, nil
}

func (c *Coordinator) sync(ctx context.Context, sess *notecard.Session) error {
	if _, err := sess.Transact(ctx, notecard.NewRequest(notecard.ReqHubSync)); err != nil {
		return fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}
	c.pendingSync.Store(false)
	return nil
}

// fail records a failed cycle. unsent holds the readings that never reached
// the device; they are requeued or dropped per config.
func (c *Coordinator) fail(ctx context.Context, cycle Cycle, err error, unsent []reading.Reading) (Cycle, error) {
	c.failures.Add(1)
	c.lastError.Store(err.Error())

	if len(unsent) > 0 {
		if c.cfg.RequeueOnFailure {
			c.queue.Requeue(unsent)
		} else {
			c.readingsDropped.Add(uint64(len(unsent)))
			c.log().Warn("dropping readings from failed cycle", "cycle_id", cycle.ID, "readings", len(unsent))
		}
	}

	cycle.Status = StatusFailed
	cycle.Err = err
	c.finish(ctx, &cycle)

	c.log().Warn("upload cycle failed",
		"cycle_id", cycle.ID,
		"pending_sync", c.pendingSync.Load(),
		"requeued", c.cfg.RequeueOnFailure && len(unsent) > 0,
		"error", err,
	)
	return cycle, err
}

func (c *Coordinator) finish(ctx context.Context, cycle *Cycle) {
	cycle.FinishedAt = c.cfg.Clock.Now()
	for _, r := range c.recorders {
		if err := r.RecordCycle(ctx, *cycle); err != nil {
			c.log().Warn("cycle recorder failed", "cycle_id", cycle.ID, "error", err)
		}
	}
}

// PendingSync reports whether a note was added but not yet synced.
func (c *Coordinator) PendingSync() bool {
	return c.pendingSync.Load()
}

// Stats returns current operational statistics.
func (c *Coordinator) Stats() CoordinatorStats {
	s := CoordinatorStats{
		Cycles:          c.cycles.Load(),
		Failures:        c.failures.Load(),
		ReadingsSent:    c.readingsSent.Load(),
		ReadingsDropped: c.readingsDropped.Load(),
		PendingSync:     c.pendingSync.Load(),
	}
	if ns := c.lastSuccess.Load(); ns != 0 {
		s.LastSuccess = time.Unix(0, ns)
	}
	if msg, ok := c.lastError.Load().(string); ok {
		s.LastError = msg
	}
	return s
}

func (c *Coordinator) log() Logger {
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

// retryable reports whether a whole-cycle retry could help. Empty queues,
// encoding failures and shutdown end the retry loop.
func retryable(err error) bool {
	return err != nil &&
		!errors.Is(err, ErrNothingToUpload) &&
		!errors.Is(err, batch.ErrEncodingFailed) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
