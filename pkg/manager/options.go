package manager

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/urmzd/zwcore/pkg/driver"
)

// Options are the read-only inputs of the core. They are copied when the
// Manager is created.
type Options struct {
	// LogLevel is one of debug, info, warn, error or disabled.
	LogLevel string `yaml:"log_level"`

	// Drivers lists the controller endpoints added at startup.
	Drivers []string `yaml:"drivers"`

	PollInterval         time.Duration `yaml:"poll_interval"`
	IntervalBetweenPolls bool          `yaml:"interval_between_polls"`
	ValidateValueChanges bool          `yaml:"validate_value_changes"`

	ResponseTimeout time.Duration `yaml:"response_timeout"`
	ACKTimeout      time.Duration `yaml:"ack_timeout"`
	MaxAttempts     int           `yaml:"max_attempts"`
	ShutdownGrace   time.Duration `yaml:"shutdown_grace"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		LogLevel:             "info",
		PollInterval:         driver.DefaultPollInterval,
		IntervalBetweenPolls: true,
		ValidateValueChanges: true,
		ResponseTimeout:      driver.DefaultResponseTimeout,
		MaxAttempts:          driver.DefaultMaxAttempts,
		ShutdownGrace:        driver.DefaultShutdownGrace,
	}
}

// Validate checks the options for values the core cannot run with.
func (o *Options) Validate() error {
	var errs []error
	if _, err := o.level(); err != nil {
		errs = append(errs, err)
	}
	if o.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("poll_interval must not be negative"))
	}
	if o.ResponseTimeout < 0 || o.ACKTimeout < 0 || o.ShutdownGrace < 0 {
		errs = append(errs, fmt.Errorf("timeouts must not be negative"))
	}
	if o.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("max_attempts must not be negative"))
	}
	return errors.Join(errs...)
}

func (o *Options) level() (zerolog.Level, error) {
	if o.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(o.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

func (o *Options) sessionConfig(endpoint string) driver.Config {
	return driver.Config{
		Endpoint:             endpoint,
		PollInterval:         o.PollInterval,
		IntervalBetweenPolls: o.IntervalBetweenPolls,
		ValidateValueChanges: o.ValidateValueChanges,
		ResponseTimeout:      o.ResponseTimeout,
		MaxAttempts:          o.MaxAttempts,
		ShutdownGrace:        o.ShutdownGrace,
	}
}
