package fieldunit

// Wire payloads the device exchanges with the controller. These mirror
// the controller's message shapes field for field; the device keeps its
// own copies because the two sides share nothing but the wire.

// checkResponse answers the device's boot-time registration query.
type checkResponse struct {
	Registered bool `json:"registered"`
}

// registerRequest asks the controller to enroll this device.
type registerRequest struct {
	UniqueIdentifier string `json:"unique_identifier"`
	DeviceType       string `json:"device_type,omitempty"`
}

// settingsResponse carries the reporting interval pushed by the
// controller.
type settingsResponse struct {
	DataFrequency int `json:"data_frequency"`
}

// reading is one measurement inside a data report.
type reading struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// dataReport is the periodic sensor payload.
type dataReport struct {
	UniqueIdentifier string    `json:"unique_identifier"`
	Data             []reading `json:"data"`
}

// commandMessage is an inbound actuator command.
type commandMessage struct {
	UniqueIdentifier string `json:"unique_identifier"`
	Action           string `json:"action"`
	Angle            *int   `json:"angle,omitempty"`
}

// responseMessage reports a command outcome.
type responseMessage struct {
	UniqueIdentifier string      `json:"unique_identifier"`
	Status           string      `json:"status"`
	Data             *resultData `json:"data,omitempty"`
}

// resultData mirrors the ledger into terminal responses.
type resultData struct {
	RemainingPercent int   `json:"remaining_percent"`
	PulsesFolded     int64 `json:"pulses_folded,omitempty"`
}

// Command verbs and response status values.
const (
	actionActivate   = "activate"
	actionDeactivate = "deactivate"
	actionAdjust     = "adjust"
	actionReset      = "reset"

	statusStarted   = "started"
	statusCompleted = "completed"
	statusRefused   = "refused"
)
