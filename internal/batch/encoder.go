package batch

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/nerrad567/gray-logic-notecard/internal/reading"
)

// formatPrefix is shared by every format tag.
const formatPrefix = "ts_id_val_"

// MaxBatchReadings is the largest batch Encode accepts and Decode reads back.
const MaxBatchReadings = math.MaxInt32

// Body is the note.add payload for one batch.
type Body struct {
	Format string `json:"format"`
	Data   string `json:"data"`
	Count  int    `json:"count"`
}

// Map returns b as the generic object a notecard.Request body expects.
func (b Body) Map() map[string]any {
	return map[string]any{
		"format": b.Format,
		"data":   b.Data,
		"count":  b.Count,
	}
}

// FormatTag returns the format identifier for c.
func FormatTag(c Compression) string {
	return formatPrefix + string(c)
}

// ParseFormatTag returns the compression named by a format tag.
func ParseFormatTag(tag string) (Compression, error) {
	name, ok := strings.CutPrefix(tag, formatPrefix)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, tag)
	}
	c, err := ParseCompression(name)
	if err != nil || name == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, tag)
	}
	return c, nil
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("batch: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
		MaxArrayElements: MaxBatchReadings,
	}.DecMode()
	if err != nil {
		panic("batch: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encoder turns reading batches into Bodies.
type Encoder struct {
	compression Compression
}

// NewEncoder returns an Encoder using c. An empty c selects zstd.
func NewEncoder(c Compression) (*Encoder, error) {
	parsed, err := ParseCompression(string(c))
	if err != nil {
		return nil, err
	}
	return &Encoder{compression: parsed}, nil
}

// Format returns the tag this encoder stamps on bodies.
func (e *Encoder) Format() string {
	return FormatTag(e.compression)
}

// Encode serialises readings in order.
func (e *Encoder) Encode(readings []reading.Reading) (Body, error) {
	if readings == nil {
		readings = []reading.Reading{}
	}
	if len(readings) > MaxBatchReadings {
		return Body{}, fmt.Errorf("%w: %d readings exceeds %d", ErrEncodingFailed, len(readings), MaxBatchReadings)
	}
	raw, err := encMode.Marshal(readings)
	if err != nil {
		return Body{}, fmt.Errorf("%w: cbor: %w", ErrEncodingFailed, err)
	}
	if len(raw) > maxDecodedSize {
		return Body{}, fmt.Errorf("%w: %d byte batch exceeds %d", ErrEncodingFailed, len(raw), maxDecodedSize)
	}
	packed, err := compress(raw, e.compression)
	if err != nil {
		return Body{}, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}
	return Body{
		Format: e.Format(),
		Data:   base64.StdEncoding.EncodeToString(packed),
		Count:  len(readings),
	}, nil
}

// Decode reverses Encode for any supported format.
func Decode(body Body) ([]reading.Reading, error) {
	c, err := ParseFormatTag(body.Format)
	if err != nil {
		return nil, err
	}
	packed, err := base64.StdEncoding.DecodeString(body.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %w", ErrDecodingFailed, err)
	}
	raw, err := decompress(packed, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodingFailed, err)
	}

	var out []reading.Reading
	if err := decMode.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: cbor: %w", ErrDecodingFailed, err)
	}
	if out == nil {
		out = []reading.Reading{}
	}
	return out, nil
}
