package fieldunit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/norian27/Smart-Greenhouse-System/internal/actuator"
	"github.com/norian27/Smart-Greenhouse-System/internal/infrastructure/mqtt"
)

// Role says which kind of field unit this process is.
type Role string

const (
	RoleSensor   Role = "sensor"
	RoleActuator Role = "actuator"
)

// defaultCheckInterval is the gap between registration checks while
// the device waits for enrollment confirmation.
const defaultCheckInterval = 5 * time.Second

// Bus is the transport surface the agent needs. Satisfied by
// *mqtt.Client.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// SensorReader samples the unit's attached sensors. Implementations
// wrap the hardware drivers; tests supply a canned reader.
type SensorReader interface {
	Read() (map[string]float64, error)
}

// AgentConfig configures one field unit process.
type AgentConfig struct {
	Role          Role
	Kind          actuator.Kind // actuator role only
	QoS           byte
	CheckInterval time.Duration
}

// Agent is the device's protocol loop: registration handshake,
// settings sync, and either periodic data reports (sensor role) or
// command handling (actuator role).
type Agent struct {
	cfg     AgentConfig
	bus     Bus
	store   *Store
	handler *Handler
	sensors SensorReader
	topics  mqtt.Topics
	logger  Logger
}

// NewAgent wires an agent. handler is required for the actuator role,
// sensors for the sensor role.
func NewAgent(cfg AgentConfig, bus Bus, store *Store, handler *Handler, sensors SensorReader, logger Logger) *Agent {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaultCheckInterval
	}
	return &Agent{
		cfg:     cfg,
		bus:     bus,
		store:   store,
		handler: handler,
		sensors: sensors,
		logger:  logger,
	}
}

// Run executes the agent until ctx is cancelled. It returns once the
// context ends or the boot sequence fails.
func (a *Agent) Run(ctx context.Context) error {
	id := a.store.Get().UniqueID

	if err := a.subscribeSettings(id); err != nil {
		return err
	}
	if err := a.ensureRegistered(ctx, id); err != nil {
		return err
	}

	switch a.cfg.Role {
	case RoleActuator:
		return a.runActuator(ctx, id)
	default:
		return a.runSensor(ctx, id)
	}
}

// subscribeSettings picks up reporting interval changes. The channel
// is retained, so the current value arrives immediately on subscribe.
func (a *Agent) subscribeSettings(id string) error {
	topic := a.topics.SettingsResponse(id)
	err := a.bus.Subscribe(topic, a.cfg.QoS, func(_ string, payload []byte) error {
		var msg settingsResponse
		if err := json.Unmarshal(payload, &msg); err != nil {
			a.logger.Warn("dropping malformed settings", "error", err)
			return nil
		}
		if msg.DataFrequency <= 0 {
			return nil
		}
		if err := a.store.Update(func(s *State) { s.DataFrequency = msg.DataFrequency }); err != nil {
			return fmt.Errorf("persisting settings: %w", err)
		}
		a.logger.Info("settings updated", "data_frequency", msg.DataFrequency)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to settings: %w", err)
	}
	return nil
}

// ensureRegistered runs the boot handshake: check, register if
// unknown, and poll the check until the controller confirms. Once
// confirmed the flag is persisted so later boots skip the wait.
func (a *Agent) ensureRegistered(ctx context.Context, id string) error {
	if a.store.Get().IsRegistered {
		return nil
	}

	confirmed := make(chan bool, 1)
	err := a.bus.Subscribe(a.topics.CheckResponse(id), a.cfg.QoS, func(_ string, payload []byte) error {
		var msg checkResponse
		if err := json.Unmarshal(payload, &msg); err != nil {
			a.logger.Warn("dropping malformed check response", "error", err)
			return nil
		}
		select {
		case confirmed <- msg.Registered:
		default:
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to check response: %w", err)
	}

	registerSent := false
	ticker := time.NewTicker(a.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		if err := a.bus.Publish(a.topics.Check(id), []byte(`{}`), a.cfg.QoS, false); err != nil {
			a.logger.Error("publishing check failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ErrNotRegistered
		case registered := <-confirmed:
			if registered {
				if err := a.store.Update(func(s *State) { s.IsRegistered = true }); err != nil {
					return fmt.Errorf("persisting registration: %w", err)
				}
				a.logger.Info("device registered", "unique_id", id)
				return nil
			}
			if !registerSent {
				if err := a.publishRegister(id); err != nil {
					a.logger.Error("publishing register failed", "error", err)
				} else {
					registerSent = true
				}
			}
		case <-ticker.C:
			continue
		}

		// Negative answer: wait out the interval before re-checking.
		select {
		case <-ctx.Done():
			return ErrNotRegistered
		case <-ticker.C:
		}
	}
}

func (a *Agent) publishRegister(id string) error {
	req := registerRequest{UniqueIdentifier: id, DeviceType: string(a.cfg.Role)}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding register request: %w", err)
	}
	return a.bus.Publish(a.topics.Register(id), payload, a.cfg.QoS, false)
}

// runActuator subscribes the control handler and blocks until
// shutdown.
func (a *Agent) runActuator(ctx context.Context, id string) error {
	err := a.bus.Subscribe(a.topics.ControlCommand(id), a.cfg.QoS, func(_ string, payload []byte) error {
		a.handler.HandleCommand(payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}

	a.logger.Info("actuator agent running", "unique_id", id, "kind", a.cfg.Kind)
	<-ctx.Done()
	return nil
}

// runSensor reports readings on the configured interval. The interval
// is re-read every cycle so settings changes apply on the next loop
// iteration without a restart.
func (a *Agent) runSensor(ctx context.Context, id string) error {
	a.logger.Info("sensor agent running", "unique_id", id)

	for {
		if err := a.reportReadings(id); err != nil {
			a.logger.Error("reporting readings failed", "error", err)
		}

		freq := a.store.Get().DataFrequency
		if freq <= 0 {
			freq = 60
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(freq) * time.Second):
		}
	}
}

// reportReadings samples the sensors and publishes one data report.
func (a *Agent) reportReadings(id string) error {
	values, err := a.sensors.Read()
	if err != nil {
		return fmt.Errorf("reading sensors: %w", err)
	}
	if len(values) == 0 {
		return nil
	}

	report := dataReport{UniqueIdentifier: id}
	for sensorType, value := range values {
		report.Data = append(report.Data, reading{Type: sensorType, Value: value})
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding data report: %w", err)
	}
	if err := a.bus.Publish(a.topics.SensorData(id), payload, a.cfg.QoS, false); err != nil {
		return fmt.Errorf("publishing data report: %w", err)
	}

	a.logger.Debug("data reported", "readings", len(report.Data))
	return nil
}

// EmitResponse returns the publish func handlers use to report command
// outcomes for the given bus and identifier.
func EmitResponse(bus Bus, qos byte, logger Logger) func(responseMessage) {
	topics := mqtt.Topics{}
	return func(resp responseMessage) {
		payload, err := json.Marshal(resp)
		if err != nil {
			logger.Error("encoding response failed", "error", err)
			return
		}
		topic := topics.ControlResponse(resp.UniqueIdentifier)
		if err := bus.Publish(topic, payload, qos, false); err != nil {
			logger.Error("publishing response failed", "topic", topic, "error", err)
		}
	}
}
