package batch

import "errors"

// Domain errors for the batch package.
var (
	// ErrEncodingFailed is returned when a batch cannot be serialised or
	// compressed. Well-formed readings never trigger it.
	ErrEncodingFailed = errors.New("batch: encoding failed")

	// ErrDecodingFailed is returned when a body cannot be decoded.
	ErrDecodingFailed = errors.New("batch: decoding failed")

	// ErrUnknownFormat is returned for an unrecognised format tag or
	// compression name.
	ErrUnknownFormat = errors.New("batch: unknown format")
)
