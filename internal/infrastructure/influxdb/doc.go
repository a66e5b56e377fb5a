// Package influxdb mirrors uploaded readings into InfluxDB.
//
// The relay's source of truth is the Notecard; this package is an optional
// local copy for dashboards. It wraps influxdb-client-go v2 with a
// non-blocking batched write API and exposes Mirror, an upload.Recorder that
// writes one point per reading of every successful flush cycle.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	coordinator.AddRecorder(influxdb.NewMirror(client, cfg.InfluxDB.Measurement, cfg.Hub.SerialNumber))
//
// # Point Layout
//
//	measurement: sensor_reading (configurable)
//	tags:        sensor_id, device
//	fields:      value
//	time:        drift-corrected reading timestamp
//
// # Thread Safety
//
// All methods are safe for concurrent use. Write errors are delivered
// asynchronously through SetOnError.
package influxdb
