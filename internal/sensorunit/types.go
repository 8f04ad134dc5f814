package sensorunit

import (
	"encoding/json"
	"time"
)

// DeviceType classifies what kind of field unit asked to enroll.
type DeviceType string

const (
	DeviceSensor   DeviceType = "sensor"
	DeviceActuator DeviceType = "actuator"
)

// Valid reports whether dt is a known device type.
func (dt DeviceType) Valid() bool {
	return dt == DeviceSensor || dt == DeviceActuator
}

// DefaultDataFrequency is the reporting interval, in seconds, assigned
// to a sensor unit at creation when none is supplied.
const DefaultDataFrequency = 60

// SensorUnit is a registered sensor device. LastReadings holds the most
// recent value per sensor type, keyed by the type string the unit
// reports ("temperature", "humidity", "soil_moisture").
type SensorUnit struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	GreenhouseID  string             `json:"greenhouse_id"`
	DataFrequency int                `json:"data_frequency"`
	LastSeen      *time.Time         `json:"last_seen,omitempty"`
	LastReadings  map[string]float64 `json:"last_readings"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Validate checks the unit's fields before it is persisted.
func (u *SensorUnit) Validate() error {
	if u.ID == "" {
		return ErrInvalidID
	}
	if u.DataFrequency < 0 {
		return ErrInvalidFrequency
	}
	return nil
}

// PendingRegistration is an unconfirmed enrollment request from a
// device the controller does not recognise. Payload keeps the raw
// registration message for the administrator to inspect.
type PendingRegistration struct {
	DeviceID    string          `json:"device_id"`
	DeviceType  DeviceType      `json:"device_type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	RequestedAt time.Time       `json:"requested_at"`
}

// Alert records a threshold violation derived from a sensor reading.
// ResolvedAt is nil while the alert is open.
type Alert struct {
	ID         int64      `json:"id"`
	Greenhouse string     `json:"greenhouse_id"`
	UnitID     string     `json:"unit_id"`
	SensorType string     `json:"sensor_type"`
	Message    string     `json:"message"`
	RaisedAt   time.Time  `json:"raised_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Open reports whether the alert has not yet been resolved.
func (a *Alert) Open() bool {
	return a.ResolvedAt == nil
}
