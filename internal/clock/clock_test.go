package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestManualSleepAdvances(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	m := NewManual(start)

	if err := m.Sleep(context.Background(), 3*time.Second); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	m.Advance(2 * time.Second)

	if got := m.Now().Sub(start); got != 5*time.Second {
		t.Errorf("elapsed = %v, want 5s", got)
	}
	if s := m.Sleeps(); len(s) != 1 || s[0] != 3*time.Second {
		t.Errorf("Sleeps() = %v, want [3s]", s)
	}
}

func TestSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := (System{}).Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("System.Sleep() error = %v, want context.Canceled", err)
	}
	if err := NewManual(time.Now()).Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Manual.Sleep() error = %v, want context.Canceled", err)
	}
}

func TestSecondsRoundTrip(t *testing.T) {
	ts := time.Unix(1_700_000_000, 500_000_000)
	if got := Seconds(ts); got != 1_700_000_000.5 {
		t.Errorf("Seconds() = %v, want 1700000000.5", got)
	}
	if got := FromSeconds(1_700_000_000.5); !got.Equal(ts) {
		t.Errorf("FromSeconds() = %v, want %v", got, ts)
	}
}
