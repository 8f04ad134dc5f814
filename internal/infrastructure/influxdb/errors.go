package influxdb

import "errors"

var (
	// ErrNotConnected indicates the client is not connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connection failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled indicates history export is turned off in config.
	// Callers treat it as "run without history", not as a failure.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
