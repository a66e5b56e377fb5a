package notecard

import (
	"errors"
	"fmt"
)

// Domain errors for the notecard package.
var (
	// ErrOpenFailed is returned by a transport dial that could not reach
	// the device. Opener.Open retries it indefinitely.
	ErrOpenFailed = errors.New("notecard: open failed")

	// ErrTransactionFailed is returned when a request/response exchange
	// with the device fails for any reason.
	ErrTransactionFailed = errors.New("notecard: transaction failed")

	// ErrDeviceError is returned when the device answers with an "err" field.
	ErrDeviceError = errors.New("notecard: device reported error")

	// ErrTimeout is returned when the device does not answer in time.
	ErrTimeout = errors.New("notecard: timed out waiting for response")

	// ErrUnsupportedTransport is returned for an unknown transport kind.
	ErrUnsupportedTransport = errors.New("notecard: unsupported transport")

	// ErrInvalidRequest is returned when a request has no "req" field or
	// cannot be serialised.
	ErrInvalidRequest = errors.New("notecard: invalid request")

	// ErrSessionClosed is returned when a closed session is used.
	ErrSessionClosed = errors.New("notecard: session closed")
)

// TransportError describes a failed transaction.
//
// It always matches ErrTransactionFailed with errors.Is, and also matches the
// underlying cause.
type TransportError struct {
	// Req is the request name, e.g. "note.add".
	Req string

	// Err is the underlying cause.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("notecard: %s: %v", e.Req, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransactionFailed, e.Err}
}
