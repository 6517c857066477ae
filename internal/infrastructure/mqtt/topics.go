package mqtt

import "strings"

// Topic prefixes.
const (
	// TopicPrefixClimate is the base for every topic this service publishes.
	TopicPrefixClimate = "graylogic/climate"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"
)

// Topics builds the service's MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.SensorState("sensor.absolute_humidity_living_room")
//	// Returns: "graylogic/climate/sensor/sensor.absolute_humidity_living_room/state"
type Topics struct{}

// SystemStatus is the retained online/offline topic, also used for the LWT.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// SensorState returns the retained state topic of a derived sensor.
func (Topics) SensorState(entityID string) string {
	return TopicPrefixClimate + "/sensor/" + sanitise(entityID) + "/state"
}

// SensorAttributes returns the retained attributes topic of a derived sensor.
func (Topics) SensorAttributes(entityID string) string {
	return TopicPrefixClimate + "/sensor/" + sanitise(entityID) + "/attributes"
}

// AllSensorStates matches every derived sensor state topic.
func (Topics) AllSensorStates() string {
	return TopicPrefixClimate + "/sensor/+/state"
}

// sanitise replaces characters that have meaning in topic filters.
func sanitise(level string) string {
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(level)
}
