package ingest

import "errors"

// Sentinel errors for payload parsing.
var (
	// ErrMalformedPayload indicates the body is not the expected JSON shape.
	ErrMalformedPayload = errors.New("ingest: malformed payload")

	// ErrMissingReadings indicates the "readings" member is absent or null.
	ErrMissingReadings = errors.New("ingest: payload has no readings field")
)
