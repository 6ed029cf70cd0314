// Package simulator is a virtual Z-Wave controller with a handful of
// built-in nodes. It speaks the Serial API over an in-memory pipe, which
// lets the driver run end to end without hardware (endpoint "sim://").
package simulator

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/zwcore/pkg/serialapi"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// Scheme is the endpoint scheme served by the simulator.
const Scheme = "sim"

// Config describes a simulated network.
type Config struct {
	HomeID       zwave.HomeID
	ControllerID zwave.NodeID
	Library      string
	Devices      []Device

	// InclusionDelay is how long add/remove mode waits before a device
	// "presses its button".
	InclusionDelay time.Duration
}

// DefaultConfig returns a network with a controller on node 1, binary
// switches on nodes 3 and 5, a dimmer on node 4 and a temperature sensor
// on node 6.
func DefaultConfig(home zwave.HomeID) Config {
	lamp := SmartSwitch(3)
	lamp.Name = "Lamp"
	lamp.Location = "Living Room"
	return Config{
		HomeID:         home,
		ControllerID:   1,
		Library:        "Z-Wave 4.05",
		Devices:        []Device{lamp, Dimmer(4), SmartSwitch(5), MultiSensor(6)},
		InclusionDelay: 200 * time.Millisecond,
	}
}

// ParseEndpoint builds a Config from "sim://<name>?home=<id>&dead=<n,..>".
// Without a home id one is derived from the name so that distinct
// endpoints get distinct networks.
func ParseEndpoint(endpoint string) (Config, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return Config{}, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != Scheme {
		return Config{}, fmt.Errorf("endpoint %q is not a %s:// endpoint", endpoint, Scheme)
	}

	q := u.Query()
	home := zwave.HomeID(nameHash(u.Host + u.Path))
	if h := q.Get("home"); h != "" {
		n, err := strconv.ParseUint(h, 0, 32)
		if err != nil {
			return Config{}, fmt.Errorf("endpoint %q: home: %w", endpoint, err)
		}
		home = zwave.HomeID(n)
	}

	cfg := DefaultConfig(home)
	if dead := q.Get("dead"); dead != "" {
		for _, s := range strings.Split(dead, ",") {
			n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
			if err != nil {
				return Config{}, fmt.Errorf("endpoint %q: dead: %w", endpoint, err)
			}
			for i := range cfg.Devices {
				if cfg.Devices[i].ID == zwave.NodeID(n) {
					cfg.Devices[i].Dead = true
				}
			}
		}
	}
	if d := q.Get("inclusion_delay"); d != "" {
		delay, err := time.ParseDuration(d)
		if err != nil {
			return Config{}, fmt.Errorf("endpoint %q: inclusion_delay: %w", endpoint, err)
		}
		cfg.InclusionDelay = delay
	}
	return cfg, nil
}

// nameHash is FNV-1a folded so it never yields zero.
func nameHash(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	if h == 0 {
		h = 1
	}
	return h
}

type inclusionMode uint8

const (
	modeIdle inclusionMode = iota
	modeAdd
	modeRemove
)

// Simulator is a running virtual controller.
type Simulator struct {
	cfg  Config
	link *serialapi.Link

	mu       sync.Mutex
	devices  map[zwave.NodeID]*Device
	trailing []serialapi.ApplicationCommand

	// owned by the serve goroutine
	mode      inclusionMode
	modeCB    uint8
	modeTimer *time.Timer
	timerC    <-chan time.Time
	found     zwave.NodeID
}

// New creates a simulator for cfg.
func New(cfg Config) *Simulator {
	s := &Simulator{cfg: cfg, devices: make(map[zwave.NodeID]*Device)}
	for i := range cfg.Devices {
		d := cfg.Devices[i]
		d.CommandClasses = slices.Clone(d.CommandClasses)
		if d.Config == nil {
			d.Config = make(map[uint8]int32)
		}
		s.devices[d.ID] = &d
	}
	return s
}

// Dial starts a simulator for cfg and returns the host end of the pipe.
// The simulator stops when the returned stream is closed.
func Dial(cfg Config) (io.ReadWriteCloser, *Simulator) {
	host, ctrl := net.Pipe()
	s := New(cfg)
	s.link = serialapi.NewLink(ctrl, serialapi.WithName("simulator"))
	go s.serve()
	return host, s
}

// HomeID returns the simulated network id.
func (s *Simulator) HomeID() zwave.HomeID {
	return s.cfg.HomeID
}

// Device returns a copy of a simulated device.
func (s *Simulator) Device(id zwave.NodeID) (Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// Update mutates a device in place, emulating physical interaction.
func (s *Simulator) Update(id zwave.NodeID, fn func(*Device)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.devices[id]; ok {
		fn(d)
	}
}

// Report sends an unsolicited command class frame from node to the host.
func (s *Simulator) Report(node zwave.NodeID, cmd []byte) error {
	return s.link.Send(context.Background(), serialapi.Request(serialapi.FuncApplicationCommandHandler,
		serialapi.EncodeApplicationCommand(serialapi.ApplicationCommand{Source: node, Command: cmd})...))
}

// Trail queues an unsolicited command class frame from node that is sent
// right behind the next SEND_DATA callback.
func (s *Simulator) Trail(node zwave.NodeID, cmd []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trailing = append(s.trailing, serialapi.ApplicationCommand{Source: node, Command: slices.Clone(cmd)})
}

// callback completes a SEND_DATA and flushes the trailing frames.
func (s *Simulator) callback(cb, status uint8) {
	s.send(serialapi.Request(serialapi.FuncSendData, cb, status))

	s.mu.Lock()
	trailing := s.trailing
	s.trailing = nil
	s.mu.Unlock()
	for _, ac := range trailing {
		s.send(serialapi.Request(serialapi.FuncApplicationCommandHandler, serialapi.EncodeApplicationCommand(ac)...))
	}
}

func (s *Simulator) serve() {
	for {
		select {
		case <-s.link.Done():
			if s.modeTimer != nil {
				s.modeTimer.Stop()
			}
			return
		case <-s.timerC:
			s.timerC = nil
			s.advanceInclusion()
		case <-s.link.Ready():
			for {
				f, ok := s.link.Next()
				if !ok {
					break
				}
				s.handle(f)
			}
		}
	}
}

func (s *Simulator) send(f serialapi.Frame) {
	if err := s.link.Send(context.Background(), f); err != nil {
		log.Debug().Err(err).Str("frame", f.String()).Msg("Simulator send failed")
	}
}

func (s *Simulator) handle(f serialapi.Frame) {
	if f.IsResponse() {
		return
	}

	switch f.Func {
	case serialapi.FuncGetVersion:
		s.send(serialapi.Response(f.Func, serialapi.EncodeVersion(serialapi.VersionInfo{Library: s.cfg.Library, LibraryType: 0x01})...))

	case serialapi.FuncMemoryGetID:
		s.send(serialapi.Response(f.Func, serialapi.EncodeMemoryGetID(s.cfg.HomeID, s.cfg.ControllerID)...))

	case serialapi.FuncGetInitData:
		s.send(serialapi.Response(f.Func, serialapi.EncodeInitData(serialapi.InitData{
			Version:      0x05,
			Capabilities: 0x08,
			Nodes:        s.nodeIDs(),
		})...))

	case serialapi.FuncGetNodeProtocolInfo:
		s.send(serialapi.Response(f.Func, s.protocolInfo(f.Payload)...))

	case serialapi.FuncRequestNodeInfo:
		s.requestNodeInfo(f.Payload)

	case serialapi.FuncSendData:
		s.sendData(f.Payload)

	case serialapi.FuncIsFailedNodeID:
		failed := byte(0)
		if len(f.Payload) > 0 {
			if d, ok := s.Device(zwave.NodeID(f.Payload[0])); ok && d.Dead {
				failed = 1
			}
		}
		s.send(serialapi.Response(f.Func, failed))

	case serialapi.FuncAddNodeToNetwork:
		s.startInclusion(modeAdd, f)

	case serialapi.FuncRemoveNodeFromNetwork:
		s.startInclusion(modeRemove, f)

	default:
		log.Debug().Str("frame", f.String()).Msg("Simulator ignoring unsupported request")
	}
}

func (s *Simulator) nodeIDs() []zwave.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []zwave.NodeID{s.cfg.ControllerID}
	for id := range s.devices {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Simulator) protocolInfo(p []byte) []byte {
	if len(p) < 1 {
		return make([]byte, 6)
	}
	id := zwave.NodeID(p[0])
	if id == s.cfg.ControllerID {
		return serialapi.ProtocolInfo{
			Listening: true,
			Routing:   true,
			Basic:     zwave.BasicTypeStaticController,
			Generic:   zwave.GenericTypeStaticController,
			Specific:  0x01,
		}.Encode()
	}
	d, ok := s.Device(id)
	if !ok {
		return make([]byte, 6)
	}
	return d.protocolInfo().Encode()
}

func (s *Simulator) requestNodeInfo(p []byte) {
	if len(p) < 1 {
		s.send(serialapi.Response(serialapi.FuncRequestNodeInfo, 0))
		return
	}
	s.send(serialapi.Response(serialapi.FuncRequestNodeInfo, 1))

	d, ok := s.Device(zwave.NodeID(p[0]))
	if !ok || d.Dead {
		s.send(serialapi.Request(serialapi.FuncApplicationUpdate, serialapi.UpdateStateNodeInfoReqFailed, 0, 0))
		return
	}
	payload := append([]byte{serialapi.UpdateStateNodeInfoReceived, byte(d.ID)}, d.nif()...)
	s.send(serialapi.Request(serialapi.FuncApplicationUpdate, payload...))
}

func (s *Simulator) sendData(p []byte) {
	node, cmd, cb, err := serialapi.ParseSendData(p)
	if err != nil || len(cmd) == 0 {
		s.send(serialapi.Response(serialapi.FuncSendData, 0))
		return
	}
	s.send(serialapi.Response(serialapi.FuncSendData, 1))

	if node == zwave.BroadcastNodeID {
		s.mu.Lock()
		for _, d := range s.devices {
			if !d.Dead && d.supports(cmd[0]) {
				d.handle(cmd)
			}
		}
		s.mu.Unlock()
		if cb != 0 {
			s.callback(cb, serialapi.TransmitCompleteOK)
		}
		return
	}

	s.mu.Lock()
	d, ok := s.devices[node]
	if !ok || d.Dead {
		s.mu.Unlock()
		if cb != 0 {
			s.callback(cb, serialapi.TransmitCompleteNoACK)
		}
		return
	}
	report := d.handle(cmd)
	s.mu.Unlock()

	if cb != 0 {
		s.callback(cb, serialapi.TransmitCompleteOK)
	}
	if report != nil {
		s.send(serialapi.Request(serialapi.FuncApplicationCommandHandler,
			serialapi.EncodeApplicationCommand(serialapi.ApplicationCommand{Source: node, Command: report})...))
	}
}

// startInclusion handles ADD/REMOVE_NODE requests. A start reports
// LEARN_READY and arms a timer; a stop ends the mode.
func (s *Simulator) startInclusion(mode inclusionMode, f serialapi.Frame) {
	if len(f.Payload) < 2 {
		return
	}
	op, cb := f.Payload[0]&0x0F, f.Payload[1]

	if op == serialapi.AddNodeStop {
		if s.modeTimer != nil {
			s.modeTimer.Stop()
			s.timerC = nil
		}
		found := s.found
		s.mode, s.found = modeIdle, 0
		if cb != 0 {
			s.send(serialapi.Request(f.Func, cb, serialapi.NodeStatusDone, byte(found)))
		}
		return
	}

	s.mode, s.modeCB, s.found = mode, cb, 0
	s.send(serialapi.Request(f.Func, cb, serialapi.NodeStatusLearnReady, 0))
	s.modeTimer = time.NewTimer(s.cfg.InclusionDelay)
	s.timerC = s.modeTimer.C
}

// advanceInclusion plays the device side of inclusion or exclusion.
func (s *Simulator) advanceInclusion() {
	switch s.mode {
	case modeAdd:
		d := s.include()
		s.send(serialapi.Request(serialapi.FuncAddNodeToNetwork, s.modeCB, serialapi.NodeStatusNodeFound, 0))
		payload := append([]byte{s.modeCB, serialapi.NodeStatusAddingSlave, byte(d.ID)}, d.nif()...)
		s.send(serialapi.Request(serialapi.FuncAddNodeToNetwork, payload...))
		s.send(serialapi.Request(serialapi.FuncAddNodeToNetwork, s.modeCB, serialapi.NodeStatusProtocolDone, byte(d.ID)))
		s.found = d.ID

	case modeRemove:
		s.send(serialapi.Request(serialapi.FuncRemoveNodeFromNetwork, s.modeCB, serialapi.NodeStatusNodeFound, 0))
		id, ok := s.exclude()
		if !ok {
			s.send(serialapi.Request(serialapi.FuncRemoveNodeFromNetwork, s.modeCB, serialapi.NodeStatusFailed, 0))
			s.mode = modeIdle
			return
		}
		s.send(serialapi.Request(serialapi.FuncRemoveNodeFromNetwork, s.modeCB, serialapi.NodeStatusAddingSlave, byte(id)))
		s.send(serialapi.Request(serialapi.FuncRemoveNodeFromNetwork, s.modeCB, serialapi.NodeStatusDone, byte(id)))
		s.mode = modeIdle
	}
}

// include adds a new smart switch on the lowest free node id.
func (s *Simulator) include() Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := zwave.NodeID(2)
	for ; id <= zwave.MaxNodeID; id++ {
		if _, used := s.devices[id]; !used && id != s.cfg.ControllerID {
			break
		}
	}
	d := SmartSwitch(id)
	s.devices[id] = &d
	return d
}

// exclude removes the highest numbered device.
func (s *Simulator) exclude() (zwave.NodeID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var top zwave.NodeID
	for id := range s.devices {
		top = max(top, id)
	}
	if top == 0 {
		return 0, false
	}
	delete(s.devices, top)
	return top, true
}
