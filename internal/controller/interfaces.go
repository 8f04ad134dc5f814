package controller

import (
	"github.com/norian27/Smart-Greenhouse-System/internal/actuator"
	"github.com/norian27/Smart-Greenhouse-System/internal/infrastructure/mqtt"
)

// MessageBus is the transport surface the controller needs. It is
// satisfied by *mqtt.Client and mocked in tests.
type MessageBus interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// PublishRetained sends a retained message at QoS 1.
	PublishRetained(topic string, payload []byte) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Logger is the logging surface used throughout the controller.
// Satisfied by *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Broadcaster pushes actuator state changes to observers (the
// websocket layer). Delivery is fire-and-forget: implementations must
// not block, and failures are logged and dropped, never retried.
type Broadcaster interface {
	ActuatorChanged(act *actuator.Actuator)
}

// HistoryWriter records sensor readings and water levels in the
// time-series store. A nil HistoryWriter disables history.
type HistoryWriter interface {
	WriteSensorReading(unitID, sensorType string, value float64)
	WriteWaterLevel(actuatorID string, remainingPercent int, pulses int64)
}
