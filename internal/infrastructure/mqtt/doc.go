// Package mqtt provides MQTT client connectivity for the relay.
//
// The relay uses MQTT for two optional jobs:
//   - an ingestion source: sensors publish the same {"readings": [...]} JSON
//     accepted over HTTP to notecard/readings
//   - health reporting: a retained status message on notecard/{device}/health
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions, restored on reconnect
//   - Last Will and Testament (LWT) for offline detection
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(cfg.MQTT.IngestTopic, 1,
//	    func(topic string, payload []byte) error {
//	        _, err := source.Handle(payload)
//	        return err
//	    })
//
// # Security Considerations
//
//   - Enable TLS (mqtt.broker.tls) when the broker is not on localhost
//   - Keep credentials in the environment (NOTECARD_MQTT_USERNAME/PASSWORD)
package mqtt
