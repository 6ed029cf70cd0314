package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	defaultKeepAlive      = 60 * time.Second
	disconnectQuiesce     = 250 // milliseconds
	maxQoS                = 2
)

var (
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrSubscribeFailed  = errors.New("mqtt: subscribe failed")
	ErrInvalidTopic     = errors.New("mqtt: invalid topic")
)

// Config configures the MQTT bridge.
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
	QoS      byte   `yaml:"qos"`
}

// DefaultConfig returns a disabled bridge pointed at a local broker.
func DefaultConfig() Config {
	return Config{
		Broker: "tcp://localhost:1883",
		Prefix: "zwave",
		QoS:    1,
	}
}

// Validate checks the settings used when the bridge is enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	}
	if c.QoS > maxQoS {
		errs = append(errs, errors.New("mqtt.qos must be 0, 1, or 2"))
	}
	if c.Prefix == "" || strings.ContainsAny(c.Prefix, "+#") {
		errs = append(errs, errors.New("mqtt.prefix must be a non-empty topic without wildcards"))
	}
	return errors.Join(errs...)
}

// clientID returns the configured id or a random one.
func (c *Config) clientID() string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return "zwcore-" + uuid.NewString()[:8]
}

func buildClientOptions(cfg Config, clientID string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	// The broker publishes offline for us if we vanish.
	opts.SetWill(statusTopic(cfg.Prefix), statusPayload("offline", clientID), 1, true)
	return opts
}

func statusPayload(status, clientID string) string {
	return fmt.Sprintf(`{"status":%q,"client_id":%q,"timestamp":%q}`,
		status, clientID, time.Now().UTC().Format(time.RFC3339))
}
