// Package telemetry writes numeric readings and driver statistics to
// InfluxDB.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/zwcore/pkg/zwave"
)

const (
	defaultPingTimeout = 5 * time.Second

	valueMeasurement  = "zwave_value"
	driverMeasurement = "zwave_driver"
)

var ErrConnectionFailed = errors.New("influxdb: connection failed")

// Config configures the InfluxDB sink.
type Config struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url"`
	Token         string        `yaml:"token"`
	Org           string        `yaml:"org"`
	Bucket        string        `yaml:"bucket"`
	BatchSize     uint          `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	StatsInterval time.Duration `yaml:"stats_interval"`
}

// DefaultConfig returns a disabled sink pointed at a local server.
func DefaultConfig() Config {
	return Config{
		URL:           "http://localhost:8086",
		Org:           "zwcore",
		Bucket:        "zwave",
		BatchSize:     100,
		FlushInterval: 10 * time.Second,
		StatsInterval: time.Minute,
	}
}

// Validate checks the settings used when the sink is enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.URL == "" {
		errs = append(errs, errors.New("telemetry.url is required"))
	}
	if c.Org == "" || c.Bucket == "" {
		errs = append(errs, errors.New("telemetry.org and telemetry.bucket are required"))
	}
	if c.StatsInterval < 0 || c.FlushInterval < 0 {
		errs = append(errs, errors.New("telemetry intervals must not be negative"))
	}
	return errors.Join(errs...)
}

// Network is the part of the manager the sink reads.
type Network interface {
	Homes() []zwave.HomeID
	Value(vid zwave.ValueID) (zwave.Value, error)
	Statistics(home zwave.HomeID) (zwave.DriverData, error)
}

// writer is the subset of api.WriteAPI the sink uses.
type writer interface {
	WritePoint(p *write.Point)
	Flush()
}

// Sink turns value notifications into points. Register Sink.Watch with
// the sink as context and run Run for the statistics.
type Sink struct {
	cfg     Config
	network Network
	writer  writer
	close   func()
}

// Connect checks the server and prepares a batching writer.
func Connect(cfg Config, network Network) (*Sink, error) {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(cfg.BatchSize).
			SetFlushInterval(uint(cfg.FlushInterval.Milliseconds())))

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()
	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			log.Warn().Err(err).Str("component", "telemetry").Msg("InfluxDB write failed")
		}
	}()

	s := newSink(cfg, network, writeAPI)
	s.close = client.Close
	log.Info().Str("url", cfg.URL).Str("bucket", cfg.Bucket).Msg("Telemetry connected")
	return s, nil
}

func newSink(cfg Config, network Network, w writer) *Sink {
	return &Sink{cfg: cfg, network: network, writer: w, close: func() {}}
}

// Close flushes pending points and releases the client.
func (s *Sink) Close() {
	s.writer.Flush()
	s.close()
}

// Watch records value readings. Only numeric and boolean readings are
// written.
func (s *Sink) Watch(n zwave.Notification, _ any) {
	if n.Type != zwave.NotificationValueChanged && n.Type != zwave.NotificationValueRefreshed {
		return
	}
	v, err := s.network.Value(n.ValueID)
	if err != nil || !v.IsSet {
		return
	}
	f, ok := numeric(v.Data)
	if !ok {
		return
	}

	at := n.Time
	if at.IsZero() {
		at = time.Now()
	}
	tags := map[string]string{
		"home_id":       n.HomeID.String(),
		"node_id":       strconv.Itoa(int(n.NodeID)),
		"command_class": fmt.Sprintf("0x%02x", v.ID.CommandClassID),
		"label":         v.Label,
	}
	if v.Units != "" {
		tags["units"] = v.Units
	}
	s.writer.WritePoint(write.NewPoint(valueMeasurement, tags, map[string]any{"value": f}, at))
}

// Run writes the statistics of every home each StatsInterval until ctx
// is done.
func (s *Sink) Run(ctx context.Context) {
	if s.cfg.StatsInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.writeStatistics(now)
		}
	}
}

func (s *Sink) writeStatistics(now time.Time) {
	for _, home := range s.network.Homes() {
		stats, err := s.network.Statistics(home)
		if err != nil {
			continue
		}
		fields, err := counterFields(stats)
		if err != nil {
			log.Warn().Err(err).Msg("Encoding driver statistics")
			return
		}
		s.writer.WritePoint(write.NewPoint(driverMeasurement, map[string]string{"home_id": home.String()}, fields, now))
	}
}

// counterFields names the counters after their JSON keys.
func counterFields(d zwave.DriverData) (map[string]any, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var counters map[string]uint32
	if err := json.Unmarshal(raw, &counters); err != nil {
		return nil, err
	}
	fields := make(map[string]any, len(counters))
	for k, v := range counters {
		fields[k] = int64(v)
	}
	return fields, nil
}

func numeric(data any) (float64, bool) {
	switch d := data.(type) {
	case bool:
		if d {
			return 1, true
		}
		return 0, true
	case uint8:
		return float64(d), true
	case int16:
		return float64(d), true
	case int32:
		return float64(d), true
	case string:
		f, err := strconv.ParseFloat(d, 64)
		return f, err == nil
	}
	return 0, false
}
