// Package reading defines the sensor Reading model and the in-memory queue
// that buffers readings between ingestion and upload.
//
// # Readings
//
// A Reading is an immutable (timestamp, sensor id, value) tuple. The timestamp
// is host-clock seconds since the Unix epoch at the time the reading was taken
// and is not corrected for device clock drift until a flush applies it.
//
// Sensor ids are either strings or integers. SensorID keeps track of which
// kind it carries so that JSON and CBOR encodings round-trip exactly.
//
// # Queue
//
// Queue is an unbounded FIFO. Enqueue never fails and never waits on anything
// but a short critical section. DrainAll removes every queued reading in one
// atomic step, so a reading enqueued concurrently with a drain lands wholly in
// that drain or wholly in the next one.
//
// Usage:
//
//	q := reading.NewQueue()
//	q.Enqueue(reading.New(ts, reading.NumericID(3), 21.4))
//	batch := q.DrainAll()
//
// Thread Safety:
//
// All Queue methods are safe for concurrent use.
package reading
