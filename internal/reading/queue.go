package reading

import "sync"

// Queue is an unbounded, concurrency-safe FIFO of readings.
type Queue struct {
	mu    sync.Mutex
	items []Reading
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends r to the tail of the queue.
func (q *Queue) Enqueue(r Reading) {
	q.mu.Lock()
	q.items = append(q.items, r)
	q.mu.Unlock()
}

// EnqueueAll appends rs to the tail in order, as a single step.
func (q *Queue) EnqueueAll(rs []Reading) {
	if len(rs) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, rs...)
	q.mu.Unlock()
}

// DrainAll removes and returns every queued reading in FIFO order.
// It returns nil when the queue is empty.
func (q *Queue) DrainAll() []Reading {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// Requeue puts rs back at the head of the queue, ahead of anything enqueued
// since they were drained. Order within rs is kept.
func (q *Queue) Requeue(rs []Reading) {
	if len(rs) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	merged := make([]Reading, 0, len(rs)+len(q.items))
	merged = append(merged, rs...)
	merged = append(merged, q.items...)
	q.items = merged
}

// IsEmpty reports whether the queue currently holds no readings.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the number of queued readings.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
