package mqtt

import "fmt"

// TopicPrefix is the root of every relay topic.
const TopicPrefix = "notecard"

// Topics builds relay MQTT topics.
type Topics struct{}

// Readings is the default ingestion topic.
//
// Example: notecard/readings
func (Topics) Readings() string {
	return TopicPrefix + "/readings"
}

// Health returns the retained health topic for a device.
//
// Example: notecard/burton_158/health
func (Topics) Health(deviceID string) string {
	return fmt.Sprintf("%s/%s/health", TopicPrefix, deviceID)
}

// Status returns the online/offline status topic for an MQTT client.
//
// Example: notecard/status/notecard-relay
func (Topics) Status(clientID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefix, clientID)
}
