package fieldunit

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/norian27/Smart-Greenhouse-System/internal/actuator"
	"github.com/norian27/Smart-Greenhouse-System/internal/infrastructure/config"
)

// DeviceConfig is the on-disk configuration for one field unit.
//
// A unit is either a sensor (reports readings) or an actuator
// (executes commands); the role decides which hardware sections apply.
type DeviceConfig struct {
	DeviceID  string               `yaml:"device_id"`
	Role      Role                 `yaml:"role"`
	Kind      actuator.Kind        `yaml:"kind"` // actuator role only
	StatePath string               `yaml:"state_path"`
	Pins      HardwarePins         `yaml:"pins"`
	MQTT      config.MQTTConfig    `yaml:"mqtt"`
	Logging   config.LoggingConfig `yaml:"logging"`
}

// LoadDeviceConfig reads and validates a device configuration file.
func LoadDeviceConfig(path string) (*DeviceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading device config: %w", err)
	}

	cfg := &DeviceConfig{
		StatePath: "device-state.json",
		Logging:   config.LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing device config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for a usable device definition.
func (c *DeviceConfig) Validate() error {
	if c.DeviceID == "" {
		return fmt.Errorf("device config: device_id is required")
	}
	switch c.Role {
	case RoleSensor:
	case RoleActuator:
		if !c.Kind.Valid() {
			return fmt.Errorf("device config: actuator role requires a valid kind, got %q", c.Kind)
		}
		if c.Pins.Relay == "" {
			return fmt.Errorf("device config: actuator role requires a relay pin")
		}
	default:
		return fmt.Errorf("device config: role must be sensor or actuator, got %q", c.Role)
	}
	if len(c.MQTT.Broker.Hosts) == 0 {
		return fmt.Errorf("device config: at least one MQTT broker host is required")
	}
	return nil
}
