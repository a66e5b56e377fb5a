// Package ingest turns submitted payloads into queued readings.
//
// Every submission surface (the HTTP handlers in package api and the
// optional MQTT source here) shares one payload format:
//
//	{"readings": [[ts, sensor_id, value], ...]}
//
// Parsing is all-or-nothing: a payload with any malformed tuple enqueues
// nothing. Ingestion never touches the Notecard; it only appends to the
// Reading Queue.
//
// # Usage
//
//	src := ingest.NewMQTTSource(client, cfg.MQTT.IngestTopic, byte(cfg.MQTT.QoS), queue)
//	src.SetLogger(log.Component("ingest"))
//	if err := src.Start(); err != nil {
//	    return err
//	}
package ingest
