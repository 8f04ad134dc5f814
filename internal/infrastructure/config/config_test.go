package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
greenhouse:
  id: "test-greenhouse"
  automated: true
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    hosts: ["localhost", "backup.example.com"]
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Greenhouse.ID != "test-greenhouse" {
		t.Errorf("Greenhouse.ID = %q, want %q", cfg.Greenhouse.ID, "test-greenhouse")
	}

	if !cfg.Greenhouse.Automated {
		t.Error("Greenhouse.Automated = false, want true")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if len(cfg.MQTT.Broker.Hosts) != 2 || cfg.MQTT.Broker.Hosts[0] != "localhost" {
		t.Errorf("MQTT.Broker.Hosts = %v, want [localhost backup.example.com]", cfg.MQTT.Broker.Hosts)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
greenhouse:
  id: ""
database:
  path: "/tmp/test.db"
api:
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty greenhouse.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Greenhouse: GreenhouseConfig{ID: "greenhouse-001"},
			Database: DatabaseConfig{
				Path: "/data/greenhouse.db",
			},
			MQTT: MQTTConfig{
				Broker: MQTTBrokerConfig{Hosts: []string{"localhost"}, Port: 1883},
				QoS:    1,
			},
			API: APIConfig{
				Port: 8080,
			},
			Logging: LoggingConfig{Level: "info"},
			Control: ControlConfig{ConfirmTimeout: 5},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing greenhouse ID",
			mutate:  func(c *Config) { c.Greenhouse.ID = "" },
			wantErr: true,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "no broker hosts",
			mutate:  func(c *Config) { c.MQTT.Broker.Hosts = nil },
			wantErr: true,
		},
		{
			name:    "empty broker host entry",
			mutate:  func(c *Config) { c.MQTT.Broker.Hosts = []string{"localhost", "  "} },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "zero confirm timeout",
			mutate:  func(c *Config) { c.Control.ConfirmTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "influxdb enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
		Control: ControlConfig{ConfirmTimeout: 5},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}

	if got := cfg.ConfirmTimeout().Seconds(); got != 5 {
		t.Errorf("ConfirmTimeout() = %v, want 5", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("GREENHOUSE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("GREENHOUSE_MQTT_HOSTS", "mqtt.example.com,mqtt2.example.com")
	t.Setenv("GREENHOUSE_MQTT_USERNAME", "testuser")
	t.Setenv("GREENHOUSE_MQTT_PASSWORD", "testpass")
	t.Setenv("GREENHOUSE_API_HOST", "192.168.1.1")
	t.Setenv("GREENHOUSE_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("GREENHOUSE_LOG_LEVEL", "debug")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	want := []string{"mqtt.example.com", "mqtt2.example.com"}
	if len(cfg.MQTT.Broker.Hosts) != 2 || cfg.MQTT.Broker.Hosts[0] != want[0] || cfg.MQTT.Broker.Hosts[1] != want[1] {
		t.Errorf("MQTT.Broker.Hosts = %v, want %v", cfg.MQTT.Broker.Hosts, want)
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Greenhouse.ID == "" {
		t.Error("defaultConfig should have non-empty Greenhouse.ID")
	}

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}

	if cfg.Control.ConfirmTimeout != 5 {
		t.Errorf("defaultConfig Control.ConfirmTimeout = %d, want 5", cfg.Control.ConfirmTimeout)
	}
}
