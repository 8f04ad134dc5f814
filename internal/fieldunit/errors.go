package fieldunit

import "errors"

var (
	// ErrNoServo indicates an angle command reached a driver without
	// an angle-capable output.
	ErrNoServo = errors.New("fieldunit: driver has no servo")

	// ErrStateCorrupt indicates the persisted state file could not be
	// parsed.
	ErrStateCorrupt = errors.New("fieldunit: state file corrupt")

	// ErrNotRegistered indicates the agent gave up waiting for
	// enrollment confirmation.
	ErrNotRegistered = errors.New("fieldunit: device not registered")
)
