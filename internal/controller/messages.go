package controller

import (
	"encoding/json"
	"strings"
)

// Action is a command verb sent to an actuator device.
type Action string

const (
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
	ActionAdjust     Action = "adjust"
	ActionReset      Action = "reset"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionActivate, ActionDeactivate, ActionAdjust, ActionReset:
		return true
	}
	return false
}

// Response status values devices report on the control response channel.
const (
	ResponseStarted   = "started"
	ResponseCompleted = "completed"
	ResponseRefused   = "refused"
)

// CheckResponseMessage answers a device's boot-time check request.
type CheckResponseMessage struct {
	Registered bool `json:"registered"`
}

// RegisterMessage is a device's enrollment request. DeviceType is
// optional; devices that omit it are treated as sensors.
type RegisterMessage struct {
	UniqueIdentifier string `json:"unique_identifier"`
	DeviceType       string `json:"device_type,omitempty"`
}

// SettingsMessage carries the reporting interval to a device. It is
// published retained so reconnecting devices always see the last value.
type SettingsMessage struct {
	DataFrequency int `json:"data_frequency"`
}

// Reading is one measurement inside a data report.
type Reading struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// DataMessage is a sensor unit's periodic report.
type DataMessage struct {
	UniqueIdentifier string    `json:"unique_identifier"`
	Data             []Reading `json:"data"`
}

// CommandMessage is an actuator command issued by the controller.
// Angle is present only for window actuators.
type CommandMessage struct {
	UniqueIdentifier string `json:"unique_identifier"`
	Action           Action `json:"action"`
	Angle            *int   `json:"angle,omitempty"`
}

// ResponseMessage is a device's report of a command outcome. Data
// carries an opaque result payload on terminal outcomes, such as the
// remaining water percentage after a sprinkler run.
type ResponseMessage struct {
	UniqueIdentifier string          `json:"unique_identifier"`
	Status           string          `json:"status"`
	Data             json.RawMessage `json:"data,omitempty"`
}

// deviceIDFromTopic extracts the trailing device identifier from a
// topic matched by a single-level wildcard subscription.
func deviceIDFromTopic(topic string) string {
	idx := strings.LastIndex(topic, "/")
	if idx < 0 || idx == len(topic)-1 {
		return ""
	}
	return topic[idx+1:]
}
