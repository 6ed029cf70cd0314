// Package discovery announces the API on the local network over mDNS.
package discovery

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/zwcore/pkg/zwave"
)

const (
	ServiceType = "_zwcore._tcp"
	Domain      = "local."

	// TXT keys.
	txtVersion = "version"
	txtPath    = "path"
	txtHomes   = "homes"

	maxInstanceNameLen = 63
)

// Config controls the announcement.
type Config struct {
	Enabled   bool          `yaml:"enabled"`
	Instance  string        `yaml:"instance"`
	Interface string        `yaml:"interface"`
	TTL       time.Duration `yaml:"ttl"`
}

// DefaultConfig returns a disabled announcement named after the host.
func DefaultConfig() Config {
	return Config{Instance: "zwcore", TTL: 2 * time.Minute}
}

// Validate checks the settings used when the announcement is enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.Instance == "" || len(c.Instance) > maxInstanceNameLen {
		errs = append(errs, fmt.Errorf("discovery.instance must be 1 to %d characters", maxInstanceNameLen))
	}
	if c.TTL < 0 {
		errs = append(errs, errors.New("discovery.ttl must not be negative"))
	}
	return errors.Join(errs...)
}

// Network lists the homes that are currently served.
type Network interface {
	Homes() []zwave.HomeID
}

type server interface {
	SetText(txt []string)
	Shutdown()
}

type registerFunc func(instance, service, domain string, port int, txt []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (server, error)

func zeroconfRegister(instance, service, domain string, port int, txt []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (server, error) {
	return zeroconf.Register(instance, service, domain, port, txt, ifaces, opts...)
}

// Advertiser keeps the mDNS record of the API current. The homes TXT
// entry follows drivers as they become ready or go away; register
// Advertiser.Watch with the advertiser as context.
type Advertiser struct {
	cfg     Config
	network Network
	port    int
	version string

	mu     sync.Mutex
	server server
	homes  string
}

// NewAdvertiser creates an advertiser for the API listening on port.
func NewAdvertiser(cfg Config, network Network, port int, version string) *Advertiser {
	return &Advertiser{cfg: cfg, network: network, port: port, version: version}
}

// Start registers the service.
func (a *Advertiser) Start() error {
	return a.start(zeroconfRegister)
}

func (a *Advertiser) start(register registerFunc) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		return nil
	}

	var opts []zeroconf.ServerOption
	if a.cfg.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.cfg.TTL.Seconds())))
	}
	a.homes = homesText(a.network.Homes())
	srv, err := register(a.cfg.Instance, ServiceType, Domain, a.port, a.text(), a.interfaces(), opts...)
	if err != nil {
		return fmt.Errorf("registering %s: %w", ServiceType, err)
	}
	a.server = srv
	log.Info().Str("instance", a.cfg.Instance).Int("port", a.port).Msg("Advertising API over mDNS")
	return nil
}

// Watch refreshes the TXT record when the set of homes changes.
func (a *Advertiser) Watch(n zwave.Notification, _ any) {
	switch n.Type {
	case zwave.NotificationDriverReady, zwave.NotificationDriverRemoved, zwave.NotificationDriverFailed:
	default:
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server == nil {
		return
	}
	homes := homesText(a.network.Homes())
	if homes == a.homes {
		return
	}
	a.homes = homes
	a.server.SetText(a.text())
}

// Shutdown withdraws the announcement.
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

func (a *Advertiser) text() []string {
	txt := []string{txtVersion + "=" + a.version, txtPath + "=/api/v1"}
	if a.homes != "" {
		txt = append(txt, txtHomes+"="+a.homes)
	}
	return txt
}

// interfaces returns nil, meaning all interfaces, unless one is named.
func (a *Advertiser) interfaces() []net.Interface {
	if a.cfg.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.cfg.Interface)
	if err != nil {
		log.Warn().Err(err).Str("interface", a.cfg.Interface).Msg("Advertising on all interfaces")
		return nil
	}
	return []net.Interface{*iface}
}

func homesText(homes []zwave.HomeID) string {
	ids := make([]string, len(homes))
	for i, h := range homes {
		ids[i] = h.String()
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}
