package sensorunit

import "errors"

var (
	// ErrNotFound indicates the requested sensor unit does not exist.
	ErrNotFound = errors.New("sensorunit: not found")

	// ErrExists indicates a unit with the same ID already exists.
	ErrExists = errors.New("sensorunit: already exists")

	// ErrInvalidID indicates an empty or malformed unit identifier.
	ErrInvalidID = errors.New("sensorunit: invalid id")

	// ErrInvalidFrequency indicates a negative reporting interval.
	ErrInvalidFrequency = errors.New("sensorunit: invalid data frequency")

	// ErrInvalidDeviceType indicates an unknown device type on a
	// pending registration.
	ErrInvalidDeviceType = errors.New("sensorunit: invalid device type")

	// ErrAlertNotFound indicates the requested alert does not exist.
	ErrAlertNotFound = errors.New("sensorunit: alert not found")
)
