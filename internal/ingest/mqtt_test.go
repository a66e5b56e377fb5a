package ingest

import (
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-notecard/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-notecard/internal/reading"
)

type fakeSubscriber struct {
	topic   string
	qos     byte
	handler mqtt.MessageHandler
	err     error
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	if f.err != nil {
		return f.err
	}
	f.topic, f.qos, f.handler = topic, qos, handler
	return nil
}

func TestMQTTSource(t *testing.T) {
	sub := &fakeSubscriber{}
	q := reading.NewQueue()

	src := NewMQTTSource(sub, "", 1, q)
	if err := src.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if sub.topic != "notecard/readings" || sub.qos != 1 {
		t.Errorf("subscribed to %q qos %d", sub.topic, sub.qos)
	}

	if err := sub.handler(sub.topic, []byte(`{"readings": [[1, 1, 1], [2, 2, 2]]}`)); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if err := sub.handler(sub.topic, []byte(`garbage`)); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("handler(garbage) error = %v", err)
	}

	if q.Len() != 2 {
		t.Errorf("queue length = %d, want 2", q.Len())
	}
	if st := src.Stats(); st.Accepted != 2 || st.Rejected != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestMQTTSource_SubscribeError(t *testing.T) {
	sub := &fakeSubscriber{err: mqtt.ErrNotConnected}
	src := NewMQTTSource(sub, "site/readings", 0, reading.NewQueue())

	if err := src.Start(); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Start() error = %v", err)
	}
	if src.Topic() != "site/readings" {
		t.Errorf("Topic() = %q", src.Topic())
	}
}
