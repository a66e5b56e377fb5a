package notecard

import (
	"encoding/json"
	"fmt"
)

// Request names used by the relay.
const (
	ReqCardTime    = "card.time"
	ReqCardRestore = "card.restore"
	ReqHubSet      = "hub.set"
	ReqHubSync     = "hub.sync"
	ReqNoteAdd     = "note.add"
)

// Request is a JSON request object. It must carry a "req" field.
type Request map[string]any

// NewRequest returns a request for the named operation.
func NewRequest(name string) Request {
	return Request{"req": name}
}

// With sets key to value and returns the request for chaining.
func (r Request) With(key string, value any) Request {
	r[key] = value
	return r
}

// Name returns the "req" field, or "" when absent.
func (r Request) Name() string {
	name, _ := r["req"].(string)
	return name
}

func (r Request) encode() ([]byte, error) {
	if r.Name() == "" {
		return nil, fmt.Errorf("%w: missing req field", ErrInvalidRequest)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return append(data, '\n'), nil
}

// Response is a decoded JSON response object.
type Response map[string]any

// Err returns the device-reported error text, or "" when the request
// succeeded.
func (r Response) Err() string {
	s, _ := r["err"].(string)
	return s
}

// Number returns a numeric field as float64.
func (r Response) Number(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Time returns the "time" field of a card.time response, in seconds since
// the Unix epoch.
func (r Response) Time() (float64, bool) {
	return r.Number("time")
}

func decodeResponse(line []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp == nil {
		resp = Response{}
	}
	return resp, nil
}
