package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nerrad567/gray-logic-notecard/internal/reading"
)

// Sink receives parsed readings. *reading.Queue satisfies it.
type Sink interface {
	EnqueueAll(rs []reading.Reading)
}

// Payload is the submission body.
type Payload struct {
	Readings []reading.Reading `json:"readings"`
}

// Parse decodes a submission body. An empty readings array is valid and
// yields no readings; a missing one is not.
func Parse(data []byte) ([]reading.Reading, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads one submission body from r.
func Decode(r io.Reader) ([]reading.Reading, error) {
	var raw struct {
		Readings *[]reading.Reading `json:"readings"`
	}

	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrMalformedPayload)
	}
	if raw.Readings == nil {
		return nil, ErrMissingReadings
	}
	return *raw.Readings, nil
}

// Submit parses data and enqueues every reading into sink. It returns the
// number of readings accepted; on error nothing is enqueued.
func Submit(sink Sink, data []byte) (int, error) {
	rs, err := Parse(data)
	if err != nil {
		return 0, err
	}
	if len(rs) > 0 {
		sink.EnqueueAll(rs)
	}
	return len(rs), nil
}
