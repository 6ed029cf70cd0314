// Package manager coordinates the driver sessions of one process. It owns
// the sessions and the watcher list, keeps HomeIDs unique and routes every
// home-scoped call to the session driving that home.
package manager

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/zwcore/pkg/driver"
	"github.com/urmzd/zwcore/pkg/notify"
	"github.com/urmzd/zwcore/pkg/serialapi"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// created guards the single Manager of the process.
var created atomic.Bool

// Manager is the process-wide coordinator. Create one with Create or Start
// and pass it to whoever needs it; release it with Destroy or Stop.
type Manager struct {
	opts     Options
	dial     Dialer
	names    driver.NameStore
	watchers *notify.Watchers

	mu        sync.RWMutex
	drivers   map[string]*driver.Session
	homes     map[zwave.HomeID]*driver.Session
	destroyed bool
}

// Option customizes a Manager.
type Option func(*Manager)

// WithDialer replaces the endpoint dialer.
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dial = d }
}

// WithNameStore restores and saves node names through s.
func WithNameStore(s driver.NameStore) Option {
	return func(m *Manager) { m.names = s }
}

// DriverInfo describes one attached session.
type DriverInfo struct {
	Endpoint     string       `json:"endpoint"`
	HomeID       zwave.HomeID `json:"home_id"`
	ControllerID zwave.NodeID `json:"controller_node_id"`
	State        string       `json:"state"`
}

// Create builds the Manager. A second Create before Destroy fails with
// ErrAlreadyInitialized.
func Create(opts Options, options ...Option) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if !created.CompareAndSwap(false, true) {
		return nil, zwave.ErrAlreadyInitialized
	}

	lvl, _ := opts.level()
	zerolog.SetGlobalLevel(lvl)

	m := &Manager{
		opts:     opts,
		dial:     Dial,
		watchers: notify.NewWatchers(),
		drivers:  make(map[string]*driver.Session),
		homes:    make(map[zwave.HomeID]*driver.Session),
	}
	m.opts.Drivers = slices.Clone(opts.Drivers)
	for _, o := range options {
		o(m)
	}

	log.Info().
		Dur("poll_interval", opts.PollInterval).
		Bool("interval_between_polls", opts.IntervalBetweenPolls).
		Bool("validate_value_changes", opts.ValidateValueChanges).
		Msg("Manager created")
	return m, nil
}

// Destroy shuts every session down and releases the Manager. Calling it
// again returns ErrNotInitialized.
func (m *Manager) Destroy() error {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return zwave.ErrNotInitialized
	}
	m.destroyed = true
	sessions := slices.Collect(maps.Values(m.drivers))
	clear(m.drivers)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close()
		}()
	}
	wg.Wait()

	m.watchers.Clear()
	created.Store(false)
	log.Info().Int("drivers", len(sessions)).Msg("Manager destroyed")
	return nil
}

// Options returns a copy of the options the Manager was created with.
func (m *Manager) Options() Options {
	o := m.opts
	o.Drivers = slices.Clone(m.opts.Drivers)
	return o
}

// --- drivers ---

// AddDriver opens endpoint and starts a session on it. The session
// initializes in the background and announces DriverReady when done.
func (m *Manager) AddDriver(endpoint string) error {
	if err := m.canAdd(endpoint); err != nil {
		return err
	}

	// opening a port can block; dial before taking the lock
	rw, err := m.dial(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", zwave.ErrTransport, endpoint, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.canAddLocked(endpoint); err != nil {
		if cerr := rw.Close(); cerr != nil {
			log.Debug().Err(cerr).Str("endpoint", endpoint).Msg("Closing unused port")
		}
		return err
	}
	opts := []serialapi.LinkOption{serialapi.WithName(endpoint)}
	if m.opts.ACKTimeout > 0 {
		opts = append(opts, serialapi.WithACKTimeout(m.opts.ACKTimeout))
	}
	link := serialapi.NewLink(rw, opts...)

	cfg := m.opts.sessionConfig(endpoint)
	cfg.Homes = m
	cfg.Names = m.names
	s := driver.New(link, notify.NewDispatcher(endpoint, m.watchers), cfg)
	m.drivers[endpoint] = s
	s.Start()

	log.Info().Str("endpoint", endpoint).Msg("Driver added")
	return nil
}

func (m *Manager) canAdd(endpoint string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.canAddLocked(endpoint)
}

func (m *Manager) canAddLocked(endpoint string) error {
	if m.destroyed {
		return zwave.ErrNotInitialized
	}
	if _, ok := m.drivers[endpoint]; ok {
		return fmt.Errorf("%w: %s", zwave.ErrDriverExists, endpoint)
	}
	return nil
}

// RemoveDriver shuts the session on endpoint down and waits until it has
// emitted DriverRemoved.
func (m *Manager) RemoveDriver(endpoint string) error {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return zwave.ErrNotInitialized
	}
	s, ok := m.drivers[endpoint]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", zwave.ErrUnknownDriver, endpoint)
	}
	delete(m.drivers, endpoint)
	m.mu.Unlock()

	s.Close()
	log.Info().Str("endpoint", endpoint).Msg("Driver removed")
	return nil
}

// Drivers lists the attached sessions ordered by endpoint.
func (m *Manager) Drivers() []DriverInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]DriverInfo, 0, len(m.drivers))
	for _, s := range m.drivers {
		out = append(out, DriverInfo{
			Endpoint:     s.Endpoint(),
			HomeID:       s.HomeID(),
			ControllerID: s.ControllerNodeID(),
			State:        s.State().String(),
		})
	}
	slices.SortFunc(out, func(a, b DriverInfo) int { return cmp.Compare(a.Endpoint, b.Endpoint) })
	return out
}

// Homes returns the HomeIDs of the active sessions in ascending order.
func (m *Manager) Homes() []zwave.HomeID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.homes))
}

// ClaimHome registers s as the session driving home. It fails when another
// session already drives it.
func (m *Manager) ClaimHome(home zwave.HomeID, s *driver.Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, ok := m.homes[home]; ok && owner != s {
		log.Warn().
			Str("home_id", home.String()).
			Str("endpoint", s.Endpoint()).
			Str("owner", owner.Endpoint()).
			Msg("Home already driven by another endpoint")
		return false
	}
	if m.destroyed {
		return false
	}
	m.homes[home] = s
	return true
}

// ReleaseHome drops the claim of s on home.
func (m *Manager) ReleaseHome(home zwave.HomeID, s *driver.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.homes[home] == s {
		delete(m.homes, home)
	}
}

// --- watchers ---

// AddWatcher registers fn with ctx. The pair identifies the registration.
func (m *Manager) AddWatcher(fn notify.WatcherFunc, ctx any) error {
	if err := m.alive(); err != nil {
		return err
	}
	return m.watchers.Add(fn, ctx)
}

// RemoveWatcher unregisters the exact (fn, ctx) pair.
func (m *Manager) RemoveWatcher(fn notify.WatcherFunc, ctx any) error {
	if err := m.alive(); err != nil {
		return err
	}
	return m.watchers.Remove(fn, ctx)
}

// --- routing ---

func (m *Manager) alive() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.destroyed {
		return zwave.ErrNotInitialized
	}
	return nil
}

func (m *Manager) session(home zwave.HomeID) (*driver.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.destroyed {
		return nil, zwave.ErrNotInitialized
	}
	s, ok := m.homes[home]
	if !ok {
		return nil, fmt.Errorf("%w: %s", zwave.ErrUnknownHome, home)
	}
	return s, nil
}

func (m *Manager) registry(home zwave.HomeID) (*zwave.NodeRegistry, error) {
	s, err := m.session(home)
	if err != nil {
		return nil, err
	}
	reg := s.Registry()
	if reg == nil {
		return nil, zwave.ErrNotReady
	}
	return reg, nil
}
