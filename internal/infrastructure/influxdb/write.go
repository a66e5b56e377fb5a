package influxdb

import (
	"context"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-notecard/internal/clock"
	"github.com/nerrad567/gray-logic-notecard/internal/reading"
	"github.com/nerrad567/gray-logic-notecard/internal/upload"
)

// DefaultMeasurement is the measurement mirrored readings are written to.
const DefaultMeasurement = "sensor_reading"

// PointWriter accepts points for asynchronous delivery. *Client satisfies it.
type PointWriter interface {
	WritePoint(p *write.Point)
}

// Mirror copies every successfully uploaded reading into InfluxDB.
//
// It implements upload.Recorder. Only cycles with StatusOK are mirrored, so
// the bucket holds exactly what reached the Notecard, with drift-corrected
// timestamps.
type Mirror struct {
	w           PointWriter
	measurement string
	device      string
}

// NewMirror returns a Mirror writing to w.
//
// Parameters:
//   - w: Destination for points (usually a connected *Client)
//   - measurement: Measurement name; empty uses DefaultMeasurement
//   - device: Value of the "device" tag (the Notecard serial number); may be empty
func NewMirror(w PointWriter, measurement, device string) *Mirror {
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	return &Mirror{w: w, measurement: measurement, device: device}
}

// RecordCycle writes one point per reading of a successful cycle.
func (m *Mirror) RecordCycle(_ context.Context, c upload.Cycle) error {
	if c.Status != upload.StatusOK {
		return nil
	}
	for _, r := range c.Readings {
		m.w.WritePoint(m.point(r))
	}
	return nil
}

func (m *Mirror) point(r reading.Reading) *write.Point {
	tags := map[string]string{"sensor_id": r.SensorID.String()}
	if m.device != "" {
		tags["device"] = m.device
	}
	return write.NewPoint(
		m.measurement,
		tags,
		map[string]any{"value": r.Value},
		clock.FromSeconds(r.Timestamp),
	)
}
