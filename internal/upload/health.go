package upload

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-notecard/internal/notecard"
)

// HealthState is the overall relay condition.
type HealthState string

// Health states.
const (
	HealthStarting HealthState = "starting"
	HealthHealthy  HealthState = "healthy"
	HealthDegraded HealthState = "degraded"
	HealthStopping HealthState = "stopping"
)

// DefaultHealthInterval is how often health is published.
const DefaultHealthInterval = 30 * time.Second

// HealthPublisher is the interface for publishing health messages.
// This is typically implemented by an MQTT client.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// HealthMessage is the retained JSON health payload.
type HealthMessage struct {
	DeviceID      string         `json:"device_id"`
	Version       string         `json:"version"`
	Status        HealthState    `json:"status"`
	Reason        string         `json:"reason,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Schedule      Status         `json:"schedule"`
	PendingSync   bool           `json:"pending_sync"`
	ReadingsSent  uint64         `json:"readings_sent"`
	Dropped       uint64         `json:"readings_dropped"`
	LastError     string         `json:"last_error,omitempty"`
	Notecard      notecard.Stats `json:"notecard"`
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// DeviceID identifies the relay, usually the Notecard serial number.
	DeviceID string

	// Version is the relay software version.
	Version string

	// Topic is the MQTT topic health is published to.
	Topic string

	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	// Publisher is the MQTT client for publishing messages.
	Publisher HealthPublisher

	Scheduler   *Scheduler
	Coordinator *Coordinator
	Opener      *notecard.Opener
}

// HealthReporter periodically publishes relay health.
type HealthReporter struct {
	cfg       HealthReporterConfig
	startTime time.Time

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewHealthReporter creates a new health reporter. Call Start to begin.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	if cfg.Interval == 0 {
		cfg.Interval = DefaultHealthInterval
	}
	return &HealthReporter{
		cfg:       cfg,
		startTime: time.Now(),
		done:      make(chan struct{}),
	}
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// Start begins periodic health reporting until ctx is cancelled or Stop is
// called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop halts reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // Best-effort during shutdown
		h.publish(HealthStopping, "relay stopping")
	})
}

// PublishNow publishes the current health immediately.
func (h *HealthReporter) PublishNow() error {
	state, reason := h.determineState()
	return h.publish(state, reason)
}

// Snapshot builds the current health message without publishing it.
func (h *HealthReporter) Snapshot() HealthMessage {
	state, reason := h.determineState()
	return h.message(state, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.cfg.Interval)
	defer ticker.Stop()

	if err := h.publish(HealthStarting, "relay starting"); err != nil {
		h.logError("failed to publish initial health", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
		}
	}
}

func (h *HealthReporter) determineState() (HealthState, string) {
	if c := h.cfg.Coordinator; c != nil && c.PendingSync() {
		return HealthDegraded, "note added but hub.sync pending"
	}
	if s := h.cfg.Scheduler; s != nil {
		st := s.Status()
		if st.Flushing && st.Retries > 0 {
			return HealthDegraded, "upload retrying"
		}
	}
	return HealthHealthy, ""
}

func (h *HealthReporter) message(state HealthState, reason string) HealthMessage {
	msg := HealthMessage{
		DeviceID:      h.cfg.DeviceID,
		Version:       h.cfg.Version,
		Status:        state,
		Reason:        reason,
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}
	if h.cfg.Scheduler != nil {
		msg.Schedule = h.cfg.Scheduler.Status()
	}
	if h.cfg.Coordinator != nil {
		stats := h.cfg.Coordinator.Stats()
		msg.PendingSync = stats.PendingSync
		msg.ReadingsSent = stats.ReadingsSent
		msg.Dropped = stats.ReadingsDropped
		msg.LastError = stats.LastError
	}
	if h.cfg.Opener != nil {
		msg.Notecard = h.cfg.Opener.Stats()
	}
	return msg
}

func (h *HealthReporter) publish(state HealthState, reason string) error {
	if h.cfg.Publisher == nil || !h.cfg.Publisher.IsConnected() {
		return nil
	}

	payload, err := json.Marshal(h.message(state, reason))
	if err != nil {
		return err
	}

	// QoS 1, retained
	return h.cfg.Publisher.Publish(h.cfg.Topic, payload, 1, true)
}

func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
