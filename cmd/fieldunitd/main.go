// Smart Greenhouse System - field unit daemon
//
// fieldunitd runs on a Raspberry Pi inside the greenhouse. One process
// drives one device: either a sensor unit that samples temperature and
// humidity and reports them upstream, or an actuator unit that executes
// relay commands (cooling, heating, irrigation, window position).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/norian27/Smart-Greenhouse-System/internal/fieldunit"
	"github.com/norian27/Smart-Greenhouse-System/internal/infrastructure/logging"
	"github.com/norian27/Smart-Greenhouse-System/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/device.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting field unit", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := fieldunit.LoadDeviceConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading device config: %w", err)
	}

	log = logging.New(cfg.Logging, "fieldunitd", version)
	log.Info("device configured",
		"device_id", cfg.DeviceID,
		"role", cfg.Role,
		"kind", cfg.Kind,
	)

	// Persisted identity and ledger state survives restarts.
	store, err := fieldunit.OpenStore(cfg.StatePath, cfg.DeviceID)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	log.Info("state store opened", "path", cfg.StatePath)

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	log.Info("MQTT connected", "hosts", cfg.MQTT.Broker.Hosts)

	qos := byte(cfg.MQTT.QoS)

	var handler *fieldunit.Handler
	var sensors fieldunit.SensorReader

	switch cfg.Role {
	case fieldunit.RoleActuator:
		counter := fieldunit.NewPulseCounter()
		driver, robot := fieldunit.NewActuatorHardware(cfg.DeviceID, cfg.Kind, cfg.Pins, counter)
		if err := robot.Start(false); err != nil {
			return fmt.Errorf("starting actuator hardware: %w", err)
		}
		defer func() {
			if stopErr := robot.Stop(); stopErr != nil {
				log.Error("error stopping hardware", "error", stopErr)
			}
		}()

		emit := fieldunit.EmitResponse(mqttClient, qos, log)
		handler = fieldunit.NewHandler(cfg.Kind, driver, counter, store, emit, log)
		log.Info("actuator hardware started",
			"relay_pin", cfg.Pins.Relay,
			"servo_pin", cfg.Pins.Servo,
			"flow_meter_pin", cfg.Pins.FlowMeter,
		)

	case fieldunit.RoleSensor:
		reader, robot := fieldunit.NewSensorHardware(cfg.DeviceID)
		if err := robot.Start(false); err != nil {
			return fmt.Errorf("starting sensor hardware: %w", err)
		}
		defer func() {
			if stopErr := robot.Stop(); stopErr != nil {
				log.Error("error stopping hardware", "error", stopErr)
			}
		}()
		sensors = reader
		log.Info("sensor hardware started")
	}

	agent := fieldunit.NewAgent(fieldunit.AgentConfig{
		Role: cfg.Role,
		Kind: cfg.Kind,
		QoS:  qos,
	}, mqttClient, store, handler, sensors, log)

	log.Info("agent starting", "device_id", cfg.DeviceID)
	if err := agent.Run(ctx); err != nil {
		return fmt.Errorf("agent: %w", err)
	}

	log.Info("field unit stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses FIELDUNIT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("FIELDUNIT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
