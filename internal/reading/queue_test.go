package reading

import (
	"sync"
	"testing"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	if !q.IsEmpty() {
		t.Fatal("new queue should be empty")
	}

	for i := 0; i < 5; i++ {
		q.Enqueue(New(float64(i), NumericID(int64(i)), float64(i)*2))
	}
	if q.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", q.Len())
	}

	got := q.DrainAll()
	if len(got) != 5 {
		t.Fatalf("DrainAll() returned %d readings, want 5", len(got))
	}
	for i, r := range got {
		if r.Timestamp != float64(i) {
			t.Errorf("reading %d timestamp = %v, want %v", i, r.Timestamp, float64(i))
		}
	}
	if !q.IsEmpty() {
		t.Error("queue should be empty after DrainAll")
	}
	if again := q.DrainAll(); again != nil {
		t.Errorf("second DrainAll() = %v, want nil", again)
	}
}

func TestQueueRequeue(t *testing.T) {
	q := NewQueue()
	q.Enqueue(New(1, StringID("a"), 1))
	q.Enqueue(New(2, StringID("b"), 2))
	failed := q.DrainAll()

	q.Enqueue(New(3, StringID("c"), 3))
	q.Requeue(failed)

	got := q.DrainAll()
	want := []float64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %d readings, want %d", len(got), len(want))
	}
	for i, ts := range want {
		if got[i].Timestamp != ts {
			t.Errorf("position %d timestamp = %v, want %v", i, got[i].Timestamp, ts)
		}
	}
}

// Every enqueued reading must appear in exactly one drain, and per-producer
// order must survive.
func TestQueueConcurrentDrainAtomicity(t *testing.T) {
	const producers = 8
	const perProducer = 500

	q := NewQueue()
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		p := p
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(New(float64(i), NumericID(int64(p)), 0))
			}
		}()
	}

	done := make(chan struct{})
	var drained []Reading
	var drainWG sync.WaitGroup
	drainWG.Add(1)
	go func() {
		defer drainWG.Done()
		for {
			select {
			case <-done:
				drained = append(drained, q.DrainAll()...)
				return
			default:
				drained = append(drained, q.DrainAll()...)
			}
		}
	}()

	wg.Wait()
	close(done)
	drainWG.Wait()

	if len(drained) != producers*perProducer {
		t.Fatalf("drained %d readings, want %d", len(drained), producers*perProducer)
	}

	next := make(map[int64]float64)
	for _, r := range drained {
		p, _ := r.SensorID.Int()
		if r.Timestamp != next[p] {
			t.Fatalf("producer %d: got ts %v, want %v", p, r.Timestamp, next[p])
		}
		next[p]++
	}
}
