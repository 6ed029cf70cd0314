package serialapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// DefaultBaudRate is what 500 and 700 series sticks ship with.
const DefaultBaudRate = 115200

// PortConfig is a serial endpoint: a device path and an optional
// "?baud=N" suffix.
type PortConfig struct {
	Path     string
	BaudRate int
}

// ParsePort splits an endpoint such as "/dev/ttyACM0?baud=57600".
func ParsePort(endpoint string) (PortConfig, error) {
	cfg := PortConfig{Path: endpoint, BaudRate: DefaultBaudRate}
	path, query, found := strings.Cut(endpoint, "?")
	if !found {
		return cfg, nil
	}
	cfg.Path = path
	q, err := url.ParseQuery(query)
	if err != nil {
		return cfg, fmt.Errorf("parse serial endpoint %q: %w", endpoint, err)
	}
	if b := q.Get("baud"); b != "" {
		baud, err := strconv.Atoi(b)
		if err != nil || baud <= 0 {
			return cfg, fmt.Errorf("parse serial endpoint %q: invalid baud %q", endpoint, b)
		}
		cfg.BaudRate = baud
	}
	if cfg.Path == "" {
		return cfg, fmt.Errorf("parse serial endpoint %q: missing device path", endpoint)
	}
	return cfg, nil
}

// Port is an open controller port. Writes are serialized so that an ACK
// never lands inside a frame.
type Port struct {
	cfg PortConfig

	wmu  sync.Mutex
	port serial.Port
}

// OpenPort opens the port in 8N1 mode and drops anything the controller
// buffered from a previous session.
func OpenPort(endpoint string) (*Port, error) {
	cfg, err := ParsePort(endpoint)
	if err != nil {
		return nil, err
	}
	p, err := serial.Open(cfg.Path, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Path, err)
	}
	if err := p.ResetInputBuffer(); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("reset %s: %w", cfg.Path, err)
	}
	log.Info().Str("port", cfg.Path).Int("baud", cfg.BaudRate).Msg("Serial port opened")
	return &Port{cfg: cfg, port: p}, nil
}

func (p *Port) Read(buf []byte) (int, error) { return p.port.Read(buf) }

func (p *Port) Write(data []byte) (int, error) {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	return p.port.Write(data)
}

func (p *Port) Close() error {
	log.Debug().Str("port", p.cfg.Path).Msg("Serial port closed")
	return p.port.Close()
}

// Ports lists the serial devices present on the host.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
