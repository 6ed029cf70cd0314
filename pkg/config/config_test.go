package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zwcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
database: /tmp/zwcore.db
api:
  port: 9090
zwave:
  log_level: debug
  drivers:
    - sim://lab?home=0xcafe
  poll_interval: 45s
  validate_value_changes: false
mqtt:
  enabled: true
  broker: tcp://mqtt.local:1883
  prefix: home/zwave
telemetry:
  flush_interval: 2s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/zwcore.db", cfg.Database)
	assert.Equal(t, "0.0.0.0:9090", cfg.API.Address())
	assert.Equal(t, "debug", cfg.ZWave.LogLevel)
	assert.Equal(t, []string{"sim://lab?home=0xcafe"}, cfg.ZWave.Drivers)
	assert.Equal(t, 45*time.Second, cfg.ZWave.PollInterval)
	assert.False(t, cfg.ZWave.ValidateValueChanges)
	assert.True(t, cfg.ZWave.IntervalBetweenPolls, "unset keys keep their defaults")
	assert.Equal(t, "home/zwave", cfg.MQTT.Prefix)
	assert.EqualValues(t, 1, cfg.MQTT.QoS)
	assert.Equal(t, 2*time.Second, cfg.Telemetry.FlushInterval)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.False(t, cfg.MQTT.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/zwcore.yaml")
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "api: [unclosed"))
	assert.ErrorContains(t, err, "parsing config file")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ZWCORE_API_PORT", "7000")
	t.Setenv("ZWCORE_DRIVERS", "sim://a, sim://b ,")
	t.Setenv("ZWCORE_MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("ZWCORE_INFLUXDB_TOKEN", "secret")

	cfg, err := Load(writeConfig(t, "api:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.API.Port)
	assert.Equal(t, []string{"sim://a", "sim://b"}, cfg.ZWave.Drivers)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "secret", cfg.Telemetry.Token)
}

func TestEnvOverrideRejectsBadPort(t *testing.T) {
	t.Setenv("ZWCORE_API_PORT", "http")
	_, err := Load("")
	assert.ErrorContains(t, err, "ZWCORE_API_PORT")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.API.Port = 0
	cfg.ZWave.LogLevel = "loud"
	cfg.Capture.Enabled = true
	cfg.Capture.Path = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.port")
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "capture.path")
}
