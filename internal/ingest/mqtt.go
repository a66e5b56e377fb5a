package ingest

import (
	"sync"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-notecard/internal/infrastructure/mqtt"
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
}

// Subscriber is the part of the MQTT client the source needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// MQTTSource enqueues readings published to an MQTT topic.
type MQTTSource struct {
	sub   Subscriber
	topic string
	qos   byte
	sink  Sink

	accepted atomic.Uint64
	rejected atomic.Uint64

	logger   Logger
	loggerMu sync.RWMutex
}

// MQTTStats counts messages handled by the source.
type MQTTStats struct {
	Accepted uint64 `json:"accepted_readings"`
	Rejected uint64 `json:"rejected_messages"`
}

// NewMQTTSource creates a source for topic. Empty topic uses
// mqtt.Topics{}.Readings().
func NewMQTTSource(sub Subscriber, topic string, qos byte, sink Sink) *MQTTSource {
	if topic == "" {
		topic = mqtt.Topics{}.Readings()
	}
	return &MQTTSource{sub: sub, topic: topic, qos: qos, sink: sink}
}

// SetLogger sets the logger.
func (s *MQTTSource) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	defer s.loggerMu.Unlock()
	s.logger = logger
}

// Start subscribes to the topic. The client restores the subscription on
// reconnect.
func (s *MQTTSource) Start() error {
	return s.sub.Subscribe(s.topic, s.qos, s.handle)
}

// Topic returns the subscribed topic.
func (s *MQTTSource) Topic() string { return s.topic }

// Stats returns message counters.
func (s *MQTTSource) Stats() MQTTStats {
	return MQTTStats{Accepted: s.accepted.Load(), Rejected: s.rejected.Load()}
}

func (s *MQTTSource) handle(topic string, payload []byte) error {
	n, err := Submit(s.sink, payload)
	if err != nil {
		s.rejected.Add(1)
		return err
	}
	s.accepted.Add(uint64(n))

	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()
	if logger != nil {
		logger.Debug("readings received", "topic", topic, "count", n)
	}
	return nil
}
