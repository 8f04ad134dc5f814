package actuator

import "errors"

// Domain errors for the actuator package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, actuator.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when an actuator ID does not exist.
	ErrNotFound = errors.New("actuator: not found")

	// ErrExists is returned when creating an actuator with an ID that already exists.
	ErrExists = errors.New("actuator: already exists")

	// ErrInvalidID is returned when an identifier is empty.
	ErrInvalidID = errors.New("actuator: invalid identifier")

	// ErrInvalidKind is returned when a kind value is not recognised.
	ErrInvalidKind = errors.New("actuator: invalid kind")

	// ErrInvalidStatus is returned when a status value is not recognised.
	ErrInvalidStatus = errors.New("actuator: invalid status")

	// ErrInvalidAngle is returned when an angle is outside [0,90].
	ErrInvalidAngle = errors.New("actuator: angle out of range")
)
