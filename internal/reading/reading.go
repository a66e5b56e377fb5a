package reading

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/fxamacker/cbor/v2"
)

// ErrInvalidSensorID is returned when a sensor id is neither a string nor an
// integral number.
var ErrInvalidSensorID = errors.New("reading: sensor id must be a string or integer")

// SensorID identifies the sensor that produced a reading.
//
// The zero value is the empty string id.
type SensorID struct {
	name    string
	number  int64
	numeric bool
}

// StringID returns a string sensor id.
func StringID(name string) SensorID {
	return SensorID{name: name}
}

// NumericID returns an integer sensor id.
func NumericID(n int64) SensorID {
	return SensorID{number: n, numeric: true}
}

// IsNumeric reports whether the id is an integer id.
func (id SensorID) IsNumeric() bool { return id.numeric }

// Int returns the integer value and true for numeric ids.
func (id SensorID) Int() (int64, bool) {
	return id.number, id.numeric
}

// String renders the id as text. Numeric ids render in base 10.
func (id SensorID) String() string {
	if id.numeric {
		return strconv.FormatInt(id.number, 10)
	}
	return id.name
}

// MarshalJSON encodes numeric ids as JSON numbers and the rest as strings.
func (id SensorID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(strconv.FormatInt(id.number, 10)), nil
	}
	return json.Marshal(id.name)
}

// UnmarshalJSON accepts a JSON string or an integral JSON number.
func (id *SensorID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSensorID, err)
		}
		*id = StringID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSensorID, data)
	}
	parsed, err := parseIntegral(n)
	if err != nil {
		return err
	}
	*id = NumericID(parsed)
	return nil
}

func parseIntegral(n json.Number) (int64, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < -0x1p63 || f >= 0x1p63 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidSensorID, n.String())
	}
	return int64(f), nil
}

// MarshalCBOR encodes numeric ids as CBOR integers and the rest as text.
func (id SensorID) MarshalCBOR() ([]byte, error) {
	if id.numeric {
		return cbor.Marshal(id.number)
	}
	return cbor.Marshal(id.name)
}

// UnmarshalCBOR accepts a CBOR text string or integer.
func (id *SensorID) UnmarshalCBOR(data []byte) error {
	var v any
	if err := cbor.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSensorID, err)
	}
	switch val := v.(type) {
	case string:
		*id = StringID(val)
	case uint64:
		if val > math.MaxInt64 {
			return fmt.Errorf("%w: %d out of range", ErrInvalidSensorID, val)
		}
		*id = NumericID(int64(val))
	case int64:
		*id = NumericID(val)
	default:
		return fmt.Errorf("%w: unexpected CBOR type %T", ErrInvalidSensorID, v)
	}
	return nil
}

// Reading is one sensor sample.
//
// It encodes as the tuple [timestamp, sensor_id, value] in both JSON and CBOR.
type Reading struct {
	_         struct{} `cbor:",toarray"`
	Timestamp float64
	SensorID  SensorID
	Value     float64
}

// New builds a Reading.
func New(ts float64, id SensorID, value float64) Reading {
	return Reading{Timestamp: ts, SensorID: id, Value: value}
}

// WithTimestamp returns a copy of r carrying ts.
func (r Reading) WithTimestamp(ts float64) Reading {
	r.Timestamp = ts
	return r
}

// MarshalJSON encodes the reading as [ts, id, val].
func (r Reading) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Timestamp, r.SensorID, r.Value})
}

// UnmarshalJSON decodes a [ts, id, val] tuple.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("reading: expected [ts, sensor_id, value]: %w", err)
	}
	if len(raw) != 3 {
		return fmt.Errorf("reading: expected 3 elements, got %d", len(raw))
	}

	var out Reading
	if err := json.Unmarshal(raw[0], &out.Timestamp); err != nil {
		return fmt.Errorf("reading: timestamp: %w", err)
	}
	if err := json.Unmarshal(raw[1], &out.SensorID); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[2], &out.Value); err != nil {
		return fmt.Errorf("reading: value: %w", err)
	}
	*r = out
	return nil
}
