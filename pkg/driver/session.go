// Package driver implements the driver session: one worker goroutine per
// controller endpoint that owns the Serial API link and the node registry,
// runs the handshake and node enumeration, executes queued commands and
// turns inbound reports into registry mutations and notifications.
package driver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/zwcore/pkg/notify"
	"github.com/urmzd/zwcore/pkg/queue"
	"github.com/urmzd/zwcore/pkg/serialapi"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// Defaults applied to a zero Config.
const (
	DefaultPollInterval    = 500 * time.Millisecond
	DefaultResponseTimeout = 2 * time.Second
	DefaultMaxAttempts     = 3
	DefaultShutdownGrace   = 5 * time.Second
)

// HomeClaimer keeps HomeIDs unique across sessions.
type HomeClaimer interface {
	ClaimHome(home zwave.HomeID, s *Session) bool
	ReleaseHome(home zwave.HomeID, s *Session)
}

// NameStore persists node names and locations between runs.
type NameStore interface {
	LookupNode(ctx context.Context, home zwave.HomeID, node zwave.NodeID) (name, location string, ok bool, err error)
	SaveNode(ctx context.Context, home zwave.HomeID, node zwave.NodeID, name, location string) error
}

// Config holds the read-only inputs of a session.
type Config struct {
	Endpoint             string
	PollInterval         time.Duration
	IntervalBetweenPolls bool
	ValidateValueChanges bool
	ResponseTimeout      time.Duration
	MaxAttempts          int
	ShutdownGrace        time.Duration

	Homes HomeClaimer
	Names NameStore
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = DefaultResponseTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = DefaultShutdownGrace
	}
}

// job is a unit of work executed by the worker. Jobs addressed to a node
// or to the controller are reported as failed when abandoned.
type job struct {
	name       string
	node       zwave.NodeID
	controller bool
	run        func(ctx context.Context) error
}

// Session is one logical connection to a controller.
type Session struct {
	cfg      Config
	log      zerolog.Logger
	link     *serialapi.Link
	dispatch *notify.Dispatcher

	state        atomic.Int32
	home         atomic.Uint32
	controllerID atomic.Uint32
	registry     atomic.Pointer[zwave.NodeRegistry]
	accepting    atomic.Bool

	jobs *queue.Queue[job]

	statsMu sync.Mutex
	stats   zwave.DriverData

	stopReq   chan struct{}
	stopOnce  sync.Once
	startOnce sync.Once
	force     context.CancelFunc
	runCtx    context.Context
	done      chan struct{}

	// owned by the worker goroutine
	callbackSeq uint8
	pending     map[zwave.ValueID]*pendingChange
	command     *controllerCommand
	polls       pollState
	claimed     bool
}

// New creates a session over link. Notifications go to dispatch, which the
// session closes once it has emitted DriverRemoved.
func New(link *serialapi.Link, dispatch *notify.Dispatcher, cfg Config) *Session {
	cfg.applyDefaults()
	ctx, force := context.WithCancel(context.Background())
	s := &Session{
		cfg:      cfg,
		log:      log.With().Str("endpoint", cfg.Endpoint).Logger(),
		link:     link,
		dispatch: dispatch,
		jobs:     queue.New[job](),
		stopReq:  make(chan struct{}),
		force:    force,
		runCtx:   ctx,
		done:     make(chan struct{}),
		pending:  make(map[zwave.ValueID]*pendingChange),
	}
	s.state.Store(int32(StateCreated))
	return s
}

// Start launches the worker. The session moves to Initializing at once and
// to Ready once every node has been queried.
func (s *Session) Start() {
	s.startOnce.Do(func() {
		s.setState(StateInitializing)
		go s.run()
	})
}

// Close requests an orderly shutdown and waits for it. Queued commands are
// drained for up to the shutdown grace period; whatever is left is reported
// as failed. Close is safe to call more than once.
func (s *Session) Close() {
	s.stopOnce.Do(func() {
		s.accepting.Store(false)
		close(s.stopReq)
		time.AfterFunc(s.cfg.ShutdownGrace, s.force)
		if s.State() == StateCreated {
			// never started; run the release path inline
			s.Start()
		}
	})
	<-s.done
}

// Done is closed once the session has been released.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// --- accessors ---

// Endpoint returns the controller endpoint the session was created for.
func (s *Session) Endpoint() string {
	return s.cfg.Endpoint
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	if prev != st {
		s.log.Debug().Str("from", prev.String()).Str("to", st.String()).Msg("Driver state changed")
	}
}

// HomeID returns the network id, zero until the handshake completes.
func (s *Session) HomeID() zwave.HomeID {
	return zwave.HomeID(s.home.Load())
}

// ControllerNodeID returns the node id of the controller itself.
func (s *Session) ControllerNodeID() zwave.NodeID {
	return zwave.NodeID(s.controllerID.Load())
}

// Registry returns the node registry, nil until the handshake completes.
func (s *Session) Registry() *zwave.NodeRegistry {
	return s.registry.Load()
}

// Statistics returns the cumulative link and message counters.
func (s *Session) Statistics() zwave.DriverData {
	s.statsMu.Lock()
	own := s.stats
	s.statsMu.Unlock()
	return s.link.Stats().Add(own)
}

func (s *Session) count(fn func(*zwave.DriverData)) {
	s.statsMu.Lock()
	fn(&s.stats)
	s.statsMu.Unlock()
}

// --- notifications ---

func (s *Session) emit(n zwave.Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	if !s.dispatch.Enqueue(n) {
		s.log.Warn().Str("notification", n.String()).Msg("Notification produced after dispatcher closed")
	}
}

func (s *Session) notify(t zwave.NotificationType, node zwave.NodeID, code uint8) {
	s.emit(zwave.Notification{Type: t, HomeID: s.HomeID(), NodeID: node, RawCode: code})
}

func (s *Session) notifyCode(node zwave.NodeID, code zwave.NotificationCode) {
	s.notify(zwave.NotificationNotification, node, uint8(code))
}

func (s *Session) notifyController(st zwave.ControllerState) {
	s.notify(zwave.NotificationControllerCommand, s.ControllerNodeID(), uint8(st))
}

// --- command intake ---

func (s *Session) ready() (*zwave.NodeRegistry, error) {
	if !s.State().Accepting() || !s.accepting.Load() {
		return nil, fmt.Errorf("%w: %s is %s", zwave.ErrNotReady, s.cfg.Endpoint, s.State())
	}
	reg := s.registry.Load()
	if reg == nil {
		return nil, zwave.ErrNotReady
	}
	return reg, nil
}

func (s *Session) submit(j job) error {
	if !s.accepting.Load() || !s.jobs.Push(j) {
		return fmt.Errorf("%w: %s is shutting down", zwave.ErrNotReady, s.cfg.Endpoint)
	}
	return nil
}

// enqueue queues follow-up work from inside the worker.
func (s *Session) enqueue(j job) {
	if !s.jobs.Push(j) {
		s.log.Debug().Str("job", j.name).Msg("Follow-up dropped, session released")
	}
}
