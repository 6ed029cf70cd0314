// Package config loads the service configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	mqttbridge "github.com/urmzd/zwcore/pkg/bridge/mqtt"
	"github.com/urmzd/zwcore/pkg/capture"
	"github.com/urmzd/zwcore/pkg/discovery"
	"github.com/urmzd/zwcore/pkg/manager"
	"github.com/urmzd/zwcore/pkg/telemetry"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ZWCORE_"

// Config is the complete service configuration.
type Config struct {
	// Database is the SQLite path. Empty selects the default location.
	Database  string            `yaml:"database"`
	API       APIConfig         `yaml:"api"`
	ZWave     manager.Options   `yaml:"zwave"`
	MQTT      mqttbridge.Config `yaml:"mqtt"`
	Telemetry telemetry.Config  `yaml:"telemetry"`
	Capture   capture.Config    `yaml:"capture"`
	Discovery discovery.Config  `yaml:"discovery"`
}

// APIConfig is the HTTP listener.
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns host:port.
func (c APIConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		API:       APIConfig{Host: "0.0.0.0", Port: 8080},
		ZWave:     manager.DefaultOptions(),
		MQTT:      mqttbridge.DefaultConfig(),
		Telemetry: telemetry.DefaultConfig(),
		Capture:   capture.Config{Path: "zwcore-capture.cbor"},
		Discovery: discovery.DefaultConfig(),
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvPrefix + "DATABASE"); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv(EnvPrefix + "API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv(EnvPrefix + "API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sAPI_PORT: %w", EnvPrefix, err)
		}
		cfg.API.Port = port
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.ZWave.LogLevel = v
	}
	// Comma separated, replaces the configured list.
	if v := os.Getenv(EnvPrefix + "DRIVERS"); v != "" {
		cfg.ZWave.Drivers = splitList(v)
	}

	if v := os.Getenv(EnvPrefix + "MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
		cfg.MQTT.Enabled = true
	}
	if v := os.Getenv(EnvPrefix + "MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv(EnvPrefix + "MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}

	if v := os.Getenv(EnvPrefix + "INFLUXDB_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port %d out of range", c.API.Port))
	}
	if err := c.ZWave.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("zwave: %w", err))
	}
	if c.Capture.Enabled && c.Capture.Path == "" {
		errs = append(errs, errors.New("capture.path is required"))
	}
	errs = append(errs, c.MQTT.Validate(), c.Telemetry.Validate(), c.Discovery.Validate())
	return errors.Join(errs...)
}
