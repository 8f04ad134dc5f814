package actuator

import (
	"encoding/json"
	"time"
)

// Kind classifies what an actuator physically controls.
type Kind string

// Supported actuator kinds.
const (
	KindCooling   Kind = "cooling"
	KindHeating   Kind = "heating"
	KindSprinkler Kind = "sprinkler"
	KindWindow    Kind = "window"
)

// Valid reports whether the kind is one of the supported values.
func (k Kind) Valid() bool {
	switch k {
	case KindCooling, KindHeating, KindSprinkler, KindWindow:
		return true
	}
	return false
}

// Metered reports whether this kind meters water flow against a
// capacity ledger. Only sprinklers do; the other kinds skip capacity
// checks entirely.
func (k Kind) Metered() bool {
	return k == KindSprinkler
}

// Angled reports whether this kind positions to an angle.
func (k Kind) Angled() bool {
	return k == KindWindow
}

// Status is the protocol status of an actuator as seen by the controller.
type Status string

// Actuator status values.
const (
	// StatusIdle means no command has been issued since the last cycle.
	StatusIdle Status = "idle"

	// StatusWaiting means a command was published and its confirmation
	// timer is armed.
	StatusWaiting Status = "waiting"

	// StatusStarted means the device confirmed it began the cycle.
	StatusStarted Status = "started"

	// StatusCompleted means the device confirmed the cycle finished.
	StatusCompleted Status = "completed"

	// StatusRefused means the device declined the command (capacity
	// exhausted on water-metered kinds).
	StatusRefused Status = "refused"

	// StatusUnreachable means no confirmation arrived before the deadline.
	StatusUnreachable Status = "unreachable"
)

// Valid reports whether the status is one of the recognised values.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusWaiting, StatusStarted, StatusCompleted, StatusRefused, StatusUnreachable:
		return true
	}
	return false
}

// Terminal reports whether the status ends a command exchange.
// A terminal status implies no outstanding confirmation timer.
func (s Status) Terminal() bool {
	switch s {
	case StatusStarted, StatusCompleted, StatusRefused, StatusUnreachable:
		return true
	}
	return false
}

// Window angle bounds in degrees.
const (
	MinAngle = 0
	MaxAngle = 90
)

// ClampAngle bounds an angle to the physical range of the window drive.
func ClampAngle(degrees int) int {
	if degrees < MinAngle {
		return MinAngle
	}
	if degrees > MaxAngle {
		return MaxAngle
	}
	return degrees
}

// Actuator is the controller's persisted record of a field actuator.
type Actuator struct {
	// Identity
	ID           string `json:"id"`
	Name         string `json:"name"`
	Kind         Kind   `json:"kind"`
	GreenhouseID string `json:"greenhouse_id"`

	// Protocol state
	IsActive    bool    `json:"is_active"`
	Status      Status  `json:"status"`
	TargetValue float64 `json:"target_value"`

	// Angle is the last commanded window position (window kind only).
	Angle int `json:"angle"`

	// LastActivated is when the most recent activate command was issued.
	LastActivated *time.Time `json:"last_activated,omitempty"`

	// LastResult is the opaque payload from the most recent terminal
	// response (e.g. remaining water percentage). Stored verbatim.
	LastResult json.RawMessage `json:"last_result,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the record for storable values.
func (a *Actuator) Validate() error {
	if a.ID == "" {
		return ErrInvalidID
	}
	if !a.Kind.Valid() {
		return ErrInvalidKind
	}
	if a.Status != "" && !a.Status.Valid() {
		return ErrInvalidStatus
	}
	if a.Angle < MinAngle || a.Angle > MaxAngle {
		return ErrInvalidAngle
	}
	return nil
}
