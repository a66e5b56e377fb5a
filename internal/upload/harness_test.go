package upload

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-notecard/internal/batch"
	"github.com/nerrad567/gray-logic-notecard/internal/clock"
	"github.com/nerrad567/gray-logic-notecard/internal/drift"
	"github.com/nerrad567/gray-logic-notecard/internal/notecard"
	"github.com/nerrad567/gray-logic-notecard/internal/reading"
)

var testStart = time.Unix(1_700_000_000, 0)

// fakeDevice emulates a Notecard reachable through notecard.Opener.
type fakeDevice struct {
	mu         sync.Mutex
	deviceTime float64 // zero omits the time field
	failAdds   int
	failSyncs  int
	dials      int
	requests   []string
	notes      []batch.Body
}

func (d *fakeDevice) dial(context.Context, notecard.Config) (notecard.Transport, error) {
	d.mu.Lock()
	d.dials++
	d.mu.Unlock()
	return &fakeTransport{dev: d}, nil
}

func (d *fakeDevice) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDevice) Requests() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.requests...)
}

func (d *fakeDevice) Notes() []batch.Body {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]batch.Body(nil), d.notes...)
}

type fakeTransport struct {
	dev *fakeDevice
}

func (f *fakeTransport) Exchange(_ context.Context, line []byte) ([]byte, error) {
	var req struct {
		Req  string     `json:"req"`
		File string     `json:"file"`
		Body batch.Body `json:"body"`
	}
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, err
	}

	d := f.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req.Req)

	switch req.Req {
	case notecard.ReqCardTime:
		if d.deviceTime == 0 {
			return []byte(`{}`), nil
		}
		return []byte(`{"time":` + strconv.FormatFloat(d.deviceTime, 'f', -1, 64) + `}`), nil
	case notecard.ReqNoteAdd:
		if d.failAdds > 0 {
			d.failAdds--
			return []byte(`{"err":"note.add: storage busy"}`), nil
		}
		d.notes = append(d.notes, req.Body)
		return []byte(`{"total":1}`), nil
	case notecard.ReqHubSync:
		if d.failSyncs > 0 {
			d.failSyncs--
			return nil, errors.New("i/o timeout")
		}
		return []byte(`{}`), nil
	default:
		return []byte(`{}`), nil
	}
}

func (f *fakeTransport) Close() error { return nil }

type harness struct {
	clock  *clock.Manual
	device *fakeDevice
	queue  *reading.Queue
	opener *notecard.Opener
	coord  *Coordinator
}

func newHarness(t *testing.T, requeue bool) *harness {
	t.Helper()

	clk := clock.NewManual(testStart)
	dev := &fakeDevice{}
	opener := notecard.NewOpener(notecard.Config{}).WithDialer(dev.dial).WithClock(clk)
	enc, err := batch.NewEncoder(batch.CompressionZstd)
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	q := reading.NewQueue()
	coord := NewCoordinator(
		CoordinatorConfig{RequeueOnFailure: requeue, Clock: clk},
		opener,
		drift.New(drift.Options{Clock: clk}),
		enc,
		q,
	)
	return &harness{clock: clk, device: dev, queue: q, opener: opener, coord: coord}
}

func (h *harness) enqueue(n int) []reading.Reading {
	var out []reading.Reading
	for i := 0; i < n; i++ {
		r := reading.New(clock.Seconds(testStart)-float64(n-i), reading.NumericID(int64(i)), float64(i)/4)
		h.queue.Enqueue(r)
		out = append(out, r)
	}
	return out
}

func decodeNote(t *testing.T, body batch.Body) []reading.Reading {
	t.Helper()
	out, err := batch.Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type recordingRecorder struct {
	mu     sync.Mutex
	cycles []Cycle
	err    error
}

func (r *recordingRecorder) RecordCycle(_ context.Context, c Cycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, c)
	return r.err
}
