package mqtt

import "fmt"

// Topic prefixes for the greenhouse MQTT namespace.
//
// Device-facing topics carry the device identifier as the final segment
// so the controller can subscribe with a single-level wildcard and route
// on the matched identifier.
const (
	// TopicPrefixSensor is the prefix for sensor unit topics
	// (registration handshake, settings sync, data reports).
	TopicPrefixSensor = "sensor"

	// TopicPrefixControl is the prefix for actuator command topics.
	TopicPrefixControl = "system/control"
)

// Topics provides builders for greenhouse MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.ControlCommand("actuator-42")
//	// Returns: "system/control/command/actuator-42"
type Topics struct{}

// =============================================================================
// Registration Handshake Topics
// =============================================================================

// Check returns the topic a device publishes on to ask whether it is registered.
//
// Example: sensor/check/unit-07
func (Topics) Check(deviceID string) string {
	return fmt.Sprintf("%s/check/%s", TopicPrefixSensor, deviceID)
}

// CheckResponse returns the topic the controller answers a check on.
//
// Example: sensor/check/response/unit-07
func (Topics) CheckResponse(deviceID string) string {
	return fmt.Sprintf("%s/check/response/%s", TopicPrefixSensor, deviceID)
}

// Register returns the topic a device publishes its enrollment request on.
//
// Example: sensor/register/unit-07
func (Topics) Register(deviceID string) string {
	return fmt.Sprintf("%s/register/%s", TopicPrefixSensor, deviceID)
}

// =============================================================================
// Settings Synchronisation Topics
// =============================================================================

// SettingsRequest returns the topic a device requests its settings on.
//
// Example: sensor/settings/request/unit-07
func (Topics) SettingsRequest(deviceID string) string {
	return fmt.Sprintf("%s/settings/request/%s", TopicPrefixSensor, deviceID)
}

// SettingsResponse returns the topic the controller publishes settings on.
// Published retained so a device that reconnects picks up the current
// settings without asking again.
//
// Example: sensor/settings/response/unit-07
func (Topics) SettingsResponse(deviceID string) string {
	return fmt.Sprintf("%s/settings/response/%s", TopicPrefixSensor, deviceID)
}

// =============================================================================
// Telemetry Topics
// =============================================================================

// SensorData returns the topic a sensor unit reports readings on.
//
// Example: sensor/data/unit-07
func (Topics) SensorData(deviceID string) string {
	return fmt.Sprintf("%s/data/%s", TopicPrefixSensor, deviceID)
}

// =============================================================================
// Actuator Control Topics
// =============================================================================

// ControlCommand returns the topic the controller issues actuator commands on.
//
// Example: system/control/command/actuator-42
func (Topics) ControlCommand(deviceID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefixControl, deviceID)
}

// ControlResponse returns the topic an actuator reports command outcomes on.
//
// Example: system/control/response/actuator-42
func (Topics) ControlResponse(deviceID string) string {
	return fmt.Sprintf("%s/response/%s", TopicPrefixControl, deviceID)
}

// =============================================================================
// Subscription Patterns (controller side)
// =============================================================================

// AllChecks returns a wildcard matching every device check topic.
// Single-level wildcards do not span segments, so check/response
// traffic is not matched.
func (Topics) AllChecks() string {
	return TopicPrefixSensor + "/check/+"
}

// AllRegistrations returns a wildcard matching every enrollment request.
func (Topics) AllRegistrations() string {
	return TopicPrefixSensor + "/register/+"
}

// AllSettingsRequests returns a wildcard matching every settings request.
func (Topics) AllSettingsRequests() string {
	return TopicPrefixSensor + "/settings/request/+"
}

// AllSensorData returns a wildcard matching every sensor data report.
func (Topics) AllSensorData() string {
	return TopicPrefixSensor + "/data/+"
}

// AllControlResponses returns a wildcard matching every actuator response.
func (Topics) AllControlResponses() string {
	return TopicPrefixControl + "/response/+"
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the controller availability topic.
// The controller publishes online/offline status here, and the broker
// publishes the Last Will here on unexpected disconnect.
func (Topics) SystemStatus() string {
	return "system/status"
}
