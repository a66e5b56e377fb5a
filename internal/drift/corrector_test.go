package drift

import (
	"context"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-notecard/internal/clock"
	"github.com/nerrad567/gray-logic-notecard/internal/notecard"
	"github.com/nerrad567/gray-logic-notecard/internal/reading"
)

var hostNow = time.Unix(1_700_000_000, 0)

type fakeSession struct {
	resp notecard.Response
	err  error
	reqs []string
}

func (f *fakeSession) Transact(_ context.Context, req notecard.Request) (notecard.Response, error) {
	f.reqs = append(f.reqs, req.Name())
	return f.resp, f.err
}

type fakeSetter struct {
	calls []time.Time
	err   error
}

func (f *fakeSetter) SetClock(t time.Time) error {
	f.calls = append(f.calls, t)
	return f.err
}

func TestComputeOffset(t *testing.T) {
	base := float64(hostNow.Unix())

	tests := []struct {
		name        string
		resp        notecard.Response
		err         error
		correctHost bool
		setterErr   error
		want        float64
		wantSets    int
		wantHostSet bool
	}{
		{name: "no drift", resp: notecard.Response{"time": base}, want: 0},
		{name: "below threshold ahead", resp: notecard.Response{"time": base + 9.9}, want: 0},
		{name: "below threshold behind", resp: notecard.Response{"time": base - 9.9}, want: 0},
		{name: "at threshold", resp: notecard.Response{"time": base + 10}, want: 10},
		{name: "large negative", resp: notecard.Response{"time": base - 3600}, want: -3600},
		{name: "missing time field", resp: notecard.Response{"zone": "UTC"}, want: 0},
		{name: "transaction failed", err: notecard.ErrTransactionFailed, want: 0},
		{
			name:        "host clock corrected",
			resp:        notecard.Response{"time": base + 120},
			correctHost: true,
			want:        120,
			wantSets:    1,
			wantHostSet: true,
		},
		{
			name:        "host clock failure ignored",
			resp:        notecard.Response{"time": base + 120},
			correctHost: true,
			setterErr:   ErrClockSet,
			want:        120,
			wantSets:    1,
		},
		{
			name:        "small drift leaves host clock alone",
			resp:        notecard.Response{"time": base + 5},
			correctHost: true,
			want:        0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setter := &fakeSetter{err: tt.setterErr}
			c := New(Options{
				CorrectHostClock: tt.correctHost,
				Setter:           setter,
				Clock:            clock.NewManual(hostNow),
			})
			sess := &fakeSession{resp: tt.resp, err: tt.err}

			got, hostSet := c.ComputeOffset(context.Background(), sess)
			if got != tt.want {
				t.Errorf("ComputeOffset() = %v, want %v", got, tt.want)
			}
			if hostSet != tt.wantHostSet {
				t.Errorf("ComputeOffset() hostSet = %v, want %v", hostSet, tt.wantHostSet)
			}
			if len(sess.reqs) != 1 || sess.reqs[0] != notecard.ReqCardTime {
				t.Errorf("requests = %v, want [card.time]", sess.reqs)
			}
			if len(setter.calls) != tt.wantSets {
				t.Fatalf("SetClock calls = %d, want %d", len(setter.calls), tt.wantSets)
			}
			if tt.wantSets > 0 {
				want := time.Unix(int64(base+tt.want), 0)
				if !setter.calls[0].Equal(want) {
					t.Errorf("SetClock(%v), want %v", setter.calls[0], want)
				}
			}
		})
	}
}

func TestClamp(t *testing.T) {
	for _, offset := range []float64{0, 0.001, -0.5, 9.999, -9.999} {
		if got := Clamp(offset, 10); got != 0 {
			t.Errorf("Clamp(%v) = %v, want 0", offset, got)
		}
	}
	for _, offset := range []float64{10, -10, 10.001, -86400.25} {
		if got := Clamp(offset, 10); got != offset {
			t.Errorf("Clamp(%v) = %v, want unchanged", offset, got)
		}
	}
}

func TestApply(t *testing.T) {
	in := []reading.Reading{
		reading.New(12345.678, reading.NumericID(1), 3),
		reading.New(100.04, reading.StringID("b"), 4),
	}

	got := Apply(0.25, in)
	if got[0].Timestamp != 12345.9 {
		t.Errorf("Timestamp = %v, want 12345.9", got[0].Timestamp)
	}
	if got[1].Timestamp != 100.3 {
		t.Errorf("Timestamp = %v, want 100.3", got[1].Timestamp)
	}
	if got[0].SensorID != in[0].SensorID || got[0].Value != in[0].Value {
		t.Error("Apply changed sensor id or value")
	}
	if in[0].Timestamp != 12345.678 {
		t.Error("Apply mutated its input")
	}

	zero := Apply(0, in)
	if zero[0].Timestamp != 12345.7 {
		t.Errorf("zero offset Timestamp = %v, want 12345.7", zero[0].Timestamp)
	}
}
