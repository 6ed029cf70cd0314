package driver

import (
	"context"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/zwcore/pkg/notify"
	"github.com/urmzd/zwcore/pkg/serialapi"
	"github.com/urmzd/zwcore/pkg/serialapi/simulator"
	"github.com/urmzd/zwcore/pkg/zwave"
)

const testHome zwave.HomeID = 0xF4C5B8DC

type recorder struct {
	mu  sync.Mutex
	got []zwave.Notification
}

func (r *recorder) watch(n zwave.Notification, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) all() []zwave.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]zwave.Notification(nil), r.got...)
}

func (r *recorder) count(match func(zwave.Notification) bool) int {
	n := 0
	for _, got := range r.all() {
		if match(got) {
			n++
		}
	}
	return n
}

func (r *recorder) wait(t *testing.T, what string, match func(zwave.Notification) bool) {
	t.Helper()
	require.Eventually(t, func() bool { return r.count(match) > 0 }, 5*time.Second, 5*time.Millisecond, "waiting for %s", what)
}

func ofType(typ zwave.NotificationType) func(zwave.Notification) bool {
	return func(n zwave.Notification) bool { return n.Type == typ }
}

func forNode(typ zwave.NotificationType, node zwave.NodeID) func(zwave.Notification) bool {
	return func(n zwave.Notification) bool { return n.Type == typ && n.NodeID == node }
}

func controllerState(st zwave.ControllerState) func(zwave.Notification) bool {
	return func(n zwave.Notification) bool {
		got, ok := n.ControllerState()
		return ok && got == st
	}
}

func code(node zwave.NodeID, c zwave.NotificationCode) func(zwave.Notification) bool {
	return func(n zwave.Notification) bool {
		got, ok := n.Code()
		return ok && got == c && n.NodeID == node
	}
}

type fixture struct {
	session *Session
	sim     *simulator.Simulator
	rec     *recorder
}

func newFixture(t *testing.T, simCfg simulator.Config, tweak func(*Config)) *fixture {
	t.Helper()
	rw, sim := simulator.Dial(simCfg)
	link := serialapi.NewLink(rw, serialapi.WithName("host"), serialapi.WithACKTimeout(500*time.Millisecond))

	rec := &recorder{}
	watchers := notify.NewWatchers()
	require.NoError(t, watchers.Add(rec.watch, nil))

	cfg := Config{
		Endpoint:        "sim://test",
		PollInterval:    time.Hour,
		ResponseTimeout: 300 * time.Millisecond,
		ShutdownGrace:   time.Second,
	}
	if tweak != nil {
		tweak(&cfg)
	}
	s := New(link, notify.NewDispatcher(cfg.Endpoint, watchers), cfg)
	s.Start()
	t.Cleanup(s.Close)
	return &fixture{session: s, sim: sim, rec: rec}
}

func readyFixture(t *testing.T, simCfg simulator.Config, tweak func(*Config)) *fixture {
	t.Helper()
	f := newFixture(t, simCfg, tweak)
	f.rec.wait(t, "driver ready", ofType(zwave.NotificationDriverReady))
	return f
}

func switchID(node zwave.NodeID) zwave.ValueID {
	return zwave.ValueID{HomeID: testHome, NodeID: node, Genre: zwave.GenreUser, CommandClassID: zwave.CCSwitchBinary, Instance: 1, Type: zwave.ValueTypeBool}
}

func levelID(node zwave.NodeID) zwave.ValueID {
	return zwave.ValueID{HomeID: testHome, NodeID: node, Genre: zwave.GenreUser, CommandClassID: zwave.CCSwitchMultilevel, Instance: 1, Type: zwave.ValueTypeByte}
}

func temperatureID(node zwave.NodeID) zwave.ValueID {
	return zwave.ValueID{HomeID: testHome, NodeID: node, Genre: zwave.GenreUser, CommandClassID: zwave.CCSensorMultilevel, Instance: 1, Index: indexTemperature, Type: zwave.ValueTypeDecimal}
}

func configID(node zwave.NodeID, param uint8, typ zwave.ValueType) zwave.ValueID {
	return zwave.ValueID{HomeID: testHome, NodeID: node, Genre: zwave.GenreConfig, CommandClassID: zwave.CCConfiguration, Instance: 1, Index: param, Type: typ}
}

// valueData returns the stored reading, nil when the value is missing.
func valueData(t *testing.T, s *Session, vid zwave.ValueID) any {
	t.Helper()
	v, err := s.Registry().Value(vid)
	if err != nil {
		return nil
	}
	return v.Data
}

type memNames struct {
	mu    sync.Mutex
	names map[zwave.NodeID][2]string
}

func (m *memNames) LookupNode(_ context.Context, _ zwave.HomeID, node zwave.NodeID) (string, string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.names[node]
	return n[0], n[1], ok, nil
}

func (m *memNames) SaveNode(_ context.Context, _ zwave.HomeID, node zwave.NodeID, name, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[node] = [2]string{name, location}
	return nil
}

func (m *memNames) get(node zwave.NodeID) [2]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.names[node]
}

type claimer struct{ allow bool }

func (c claimer) ClaimHome(zwave.HomeID, *Session) bool { return c.allow }
func (c claimer) ReleaseHome(zwave.HomeID, *Session)    {}

// --- tests ---

func TestSessionEnumeratesNetwork(t *testing.T) {
	names := &memNames{names: map[zwave.NodeID][2]string{4: {"Hall Dimmer", "Hall"}}}
	f := readyFixture(t, simulator.DefaultConfig(testHome), func(c *Config) { c.Names = names })
	s := f.session

	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, testHome, s.HomeID())
	assert.Equal(t, zwave.NodeID(1), s.ControllerNodeID())

	reg := s.Registry()
	var ids []zwave.NodeID
	for _, n := range reg.Nodes() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []zwave.NodeID{1, 3, 4, 5, 6}, ids)

	lamp, err := reg.Node(3)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", lamp.Name)
	assert.Equal(t, "Living Room", lamp.Location)
	assert.Equal(t, "Aeotec", lamp.ManufacturerName)
	assert.Equal(t, "ZW096 Smart Switch 6", lamp.ProductName)
	assert.True(t, lamp.QueriesComplete)

	dimmer, err := reg.Node(4)
	require.NoError(t, err)
	assert.Equal(t, "Hall Dimmer", dimmer.Name, "empty naming report keeps the cached name")

	assert.Equal(t, false, valueData(t, s, switchID(3)))
	assert.Equal(t, int16(25), valueData(t, s, configID(3, 91, zwave.ValueTypeShort)))
	assert.Equal(t, "21.5", valueData(t, s, temperatureID(6)))

	f.rec.wait(t, "all queried", ofType(zwave.NotificationAllNodesQueried))
	got := f.rec.all()
	index := func(match func(zwave.Notification) bool) int {
		for i, n := range got {
			if match(n) {
				return i
			}
		}
		return -1
	}
	order := []int{
		index(forNode(zwave.NotificationNodeNew, 3)),
		index(forNode(zwave.NotificationNodeAdded, 3)),
		index(forNode(zwave.NotificationNodeProtocolInfo, 3)),
		index(forNode(zwave.NotificationValueAdded, 3)),
		index(forNode(zwave.NotificationEssentialNodeQueriesComplete, 3)),
		index(forNode(zwave.NotificationNodeQueriesComplete, 3)),
		index(ofType(zwave.NotificationDriverReady)),
		index(ofType(zwave.NotificationAllNodesQueried)),
	}
	for i := range order {
		require.GreaterOrEqual(t, order[i], 0, "missing step %d", i)
		if i > 0 {
			assert.Less(t, order[i-1], order[i], "step %d out of order", i)
		}
	}
	assert.Equal(t, -1, index(forNode(zwave.NotificationNodeNew, 4)), "cached node is not new")
	assert.Equal(t, -1, index(ofType(zwave.NotificationAllNodesQueriedSomeDead)))
}

func TestSetNodeOnEndToEnd(t *testing.T) {
	f := readyFixture(t, simulator.DefaultConfig(testHome), nil)
	s := f.session

	require.NoError(t, s.SetNodeOn(5))
	require.Eventually(t, func() bool { return valueData(t, s, switchID(5)) == true }, 5*time.Second, 5*time.Millisecond)

	changed := func(n zwave.Notification) bool {
		return n.Type == zwave.NotificationValueChanged && n.ValueID == switchID(5)
	}
	f.rec.wait(t, "value changed", changed)
	assert.Equal(t, 2, f.rec.count(changed), "initial reading and the switch-on")

	d, ok := f.sim.Device(5)
	require.True(t, ok)
	assert.True(t, d.On)
}

func TestWrongTypeNeverReachesTransport(t *testing.T) {
	f := readyFixture(t, simulator.DefaultConfig(testHome), nil)
	s := f.session

	before := s.Statistics().WriteCnt
	assert.ErrorIs(t, s.SetValue(switchID(5), uint8(1)), zwave.ErrTypeMismatch)
	assert.ErrorIs(t, s.SetValue(switchID(5), "on"), zwave.ErrTypeMismatch)
	assert.ErrorIs(t, s.SetValue(temperatureID(6), "20.0"), zwave.ErrReadOnly)
	assert.ErrorIs(t, s.SetValue(switchID(9), true), zwave.ErrUnknownNode)
	assert.ErrorIs(t, s.SetValue(levelID(5), uint8(1)), zwave.ErrUnknownValue)

	other := switchID(5)
	other.HomeID = 0x1234
	assert.ErrorIs(t, s.SetValue(other, true), zwave.ErrUnknownHome)

	assert.Equal(t, before, s.Statistics().WriteCnt)
}

func TestValueBounds(t *testing.T) {
	f := readyFixture(t, simulator.DefaultConfig(testHome), nil)
	s := f.session

	assert.NoError(t, s.SetValue(levelID(4), uint8(99)))
	assert.ErrorIs(t, s.SetValue(levelID(4), uint8(100)), zwave.ErrOutOfRange)

	param := configID(3, 91, zwave.ValueTypeShort)
	assert.NoError(t, s.SetValue(param, int16(32000)))
	assert.ErrorIs(t, s.SetValue(param, int16(32001)), zwave.ErrOutOfRange)

	require.Eventually(t, func() bool { return valueData(t, s, param) == int16(32000) }, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return valueData(t, s, levelID(4)) == uint8(99) }, 5*time.Second, 5*time.Millisecond)
}

func TestSetValueFromString(t *testing.T) {
	f := readyFixture(t, simulator.DefaultConfig(testHome), nil)
	s := f.session

	switchAll := zwave.ValueID{HomeID: testHome, NodeID: 3, Genre: zwave.GenreSystem, CommandClassID: zwave.CCSwitchAll, Instance: 1, Type: zwave.ValueTypeList}
	require.NoError(t, s.SetValueFromString(switchAll, "on enabled"))
	require.Eventually(t, func() bool { return valueData(t, s, switchAll) == int32(2) }, 5*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, s.SetValueFromString(switchAll, "sometimes"), zwave.ErrOutOfRange)
	assert.ErrorIs(t, s.SetValueFromString(levelID(4), "lots"), zwave.ErrTypeMismatch)
}

func TestCancelWhenIdleIsSilent(t *testing.T) {
	f := readyFixture(t, simulator.DefaultConfig(testHome), nil)

	require.NoError(t, f.session.CancelControllerCommand())
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, f.rec.count(ofType(zwave.NotificationControllerCommand)))
	assert.Equal(t, StateReady, f.session.State())
}

func TestAddDevice(t *testing.T) {
	simCfg := simulator.DefaultConfig(testHome)
	simCfg.InclusionDelay = 50 * time.Millisecond
	f := readyFixture(t, simCfg, nil)
	s := f.session

	require.NoError(t, s.BeginControllerCommand(ControllerCommandAddDevice, 0))
	assert.Equal(t, StateBusy, s.State())
	assert.ErrorIs(t, s.BeginControllerCommand(ControllerCommandRemoveDevice, 0), zwave.ErrBusy)
	assert.Equal(t, uint32(1), s.Statistics().NotIdle)

	f.rec.wait(t, "completed", controllerState(zwave.ControllerStateCompleted))
	f.rec.wait(t, "new node queried", forNode(zwave.NotificationNodeQueriesComplete, 2))
	assert.Equal(t, 1, f.rec.count(forNode(zwave.NotificationNodeNew, 2)))
	assert.Equal(t, StateReady, s.State())

	var states []zwave.ControllerState
	for _, n := range f.rec.all() {
		if st, ok := n.ControllerState(); ok {
			states = append(states, st)
		}
	}
	assert.Equal(t, []zwave.ControllerState{
		zwave.ControllerStateStarting,
		zwave.ControllerStateWaiting,
		zwave.ControllerStateInProgress,
		zwave.ControllerStateCompleted,
	}, states)

	n, err := s.Registry().Node(2)
	require.NoError(t, err)
	assert.Equal(t, "ZW096 Smart Switch 6", n.ProductName)
}

func TestRemoveDevice(t *testing.T) {
	simCfg := simulator.DefaultConfig(testHome)
	simCfg.InclusionDelay = 50 * time.Millisecond
	f := readyFixture(t, simCfg, nil)
	s := f.session

	require.NoError(t, s.BeginControllerCommand(ControllerCommandRemoveDevice, 0))
	f.rec.wait(t, "completed", controllerState(zwave.ControllerStateCompleted))
	f.rec.wait(t, "node removed", forNode(zwave.NotificationNodeRemoved, 6))

	_, err := s.Registry().Node(6)
	assert.ErrorIs(t, err, zwave.ErrUnknownNode)
	assert.Positive(t, f.rec.count(forNode(zwave.NotificationValueRemoved, 6)))
	assert.Equal(t, StateReady, s.State())
}

func TestCancelAddDevice(t *testing.T) {
	simCfg := simulator.DefaultConfig(testHome)
	simCfg.InclusionDelay = time.Hour
	f := readyFixture(t, simCfg, nil)
	s := f.session

	require.NoError(t, s.BeginControllerCommand(ControllerCommandAddDevice, 0))
	f.rec.wait(t, "waiting", controllerState(zwave.ControllerStateWaiting))

	require.NoError(t, s.CancelControllerCommand())
	f.rec.wait(t, "cancel", controllerState(zwave.ControllerStateCancel))
	require.Eventually(t, func() bool { return s.State() == StateReady }, time.Second, 5*time.Millisecond)
	assert.Zero(t, f.rec.count(controllerState(zwave.ControllerStateCompleted)))
}

func TestDeadNode(t *testing.T) {
	simCfg, err := simulator.ParseEndpoint("sim://dead?home=0xF4C5B8DC&dead=5")
	require.NoError(t, err)
	f := readyFixture(t, simCfg, nil)
	s := f.session

	f.rec.wait(t, "some dead", ofType(zwave.NotificationAllNodesQueriedSomeDead))
	n, err := s.Registry().Node(5)
	require.NoError(t, err)
	assert.True(t, n.Dead)
	assert.Equal(t, 1, f.rec.count(code(5, zwave.CodeDead)))

	require.NoError(t, s.BeginControllerCommand(ControllerCommandHasNodeFailed, 5))
	f.rec.wait(t, "node failed", controllerState(zwave.ControllerStateNodeFailed))
	require.Eventually(t, func() bool { return s.State() == StateReady }, time.Second, 5*time.Millisecond)

	// the node never acknowledges, so the command is retried and dropped
	require.NoError(t, s.SetNodeOn(5))
	f.rec.wait(t, "timeout", code(5, zwave.CodeTimeout))
	stats := s.Statistics()
	assert.Positive(t, stats.Dropped)
	assert.Positive(t, stats.NoACK)
	assert.Positive(t, stats.Retries)
}

func TestHasNodeFailedOnHealthyNode(t *testing.T) {
	f := readyFixture(t, simulator.DefaultConfig(testHome), nil)
	s := f.session

	assert.ErrorIs(t, s.BeginControllerCommand(ControllerCommandHasNodeFailed, 42), zwave.ErrUnknownNode)
	assert.Equal(t, StateReady, s.State())

	require.NoError(t, s.BeginControllerCommand(ControllerCommandHasNodeFailed, 3))
	f.rec.wait(t, "node ok", controllerState(zwave.ControllerStateNodeOK))
}

func TestValidateValueChangesConfirmsBeforeCommit(t *testing.T) {
	f := readyFixture(t, simulator.DefaultConfig(testHome), func(c *Config) { c.ValidateValueChanges = true })
	s := f.session

	before := s.Statistics().WriteCnt
	f.sim.Update(4, func(d *simulator.Device) { d.Level = 42 })
	require.NoError(t, s.RefreshValue(levelID(4)))

	require.Eventually(t, func() bool { return valueData(t, s, levelID(4)) == uint8(42) }, 5*time.Second, 5*time.Millisecond)
	// one GET for the report and one to confirm it
	assert.GreaterOrEqual(t, s.Statistics().WriteCnt-before, uint32(2))

	// an unchanged reading is a refresh
	require.NoError(t, s.RefreshValue(levelID(4)))
	f.rec.wait(t, "refreshed", func(n zwave.Notification) bool {
		return n.Type == zwave.NotificationValueRefreshed && n.ValueID == levelID(4)
	})
}

func TestUnsolicitedReports(t *testing.T) {
	f := readyFixture(t, simulator.DefaultConfig(testHome), nil)
	s := f.session

	require.NoError(t, f.sim.Report(4, []byte{zwave.CCSwitchMultilevel, serialapi.CmdReport, 50}))
	require.Eventually(t, func() bool { return valueData(t, s, levelID(4)) == uint8(50) }, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, f.sim.Report(3, []byte{zwave.CCBasic, serialapi.CmdSet, 0xFF}))
	f.rec.wait(t, "node event", forNode(zwave.NotificationNodeEvent, 3))

	require.NoError(t, f.sim.Report(3, []byte{zwave.CCBasic, serialapi.CmdReport, 0xFF}))
	require.Eventually(t, func() bool { return valueData(t, s, switchID(3)) == true }, 5*time.Second, 5*time.Millisecond)
}

func TestPolling(t *testing.T) {
	f := readyFixture(t, simulator.DefaultConfig(testHome), func(c *Config) {
		c.PollInterval = 50 * time.Millisecond
		c.IntervalBetweenPolls = true
	})
	s := f.session

	require.NoError(t, s.EnablePoll(temperatureID(6), 1))
	f.rec.wait(t, "polling enabled", forNode(zwave.NotificationPollingEnabled, 6))
	polled, err := s.IsPolled(temperatureID(6))
	require.NoError(t, err)
	assert.True(t, polled)

	f.sim.Update(6, func(d *simulator.Device) { d.Temperature = "23.25" })
	require.Eventually(t, func() bool { return valueData(t, s, temperatureID(6)) == "23.25" }, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, s.DisablePoll(temperatureID(6)))
	f.rec.wait(t, "polling disabled", forNode(zwave.NotificationPollingDisabled, 6))
}

func TestPollChangesRunOnWorker(t *testing.T) {
	f := readyFixture(t, simulator.DefaultConfig(testHome), nil)
	s := f.session

	started, release := make(chan struct{}), make(chan struct{})
	require.NoError(t, s.submit(job{name: "block", run: func(ctx context.Context) error {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}}))
	<-started

	require.NoError(t, s.EnablePoll(temperatureID(6), 2))
	polled, err := s.IsPolled(temperatureID(6))
	require.NoError(t, err)
	assert.False(t, polled, "applied before the worker got to it")

	// validation still happens on the caller
	assert.ErrorIs(t, s.EnablePoll(configID(6, 99, zwave.ValueTypeByte), 1), zwave.ErrUnknownValue)
	assert.ErrorIs(t, s.DisablePoll(configID(6, 99, zwave.ValueTypeByte)), zwave.ErrUnknownValue)

	close(release)
	f.rec.wait(t, "polling enabled", forNode(zwave.NotificationPollingEnabled, 6))
	v, err := s.Registry().Value(temperatureID(6))
	require.NoError(t, err)
	assert.Equal(t, uint8(2), v.PollIntensity)
}

func TestFailedCallbackKeepsInboundBurst(t *testing.T) {
	simCfg, err := simulator.ParseEndpoint("sim://burst?home=0xF4C5B8DC&dead=5")
	require.NoError(t, err)
	f := readyFixture(t, simCfg, func(c *Config) { c.MaxAttempts = 1 })
	s := f.session
	f.rec.wait(t, "some dead", ofType(zwave.NotificationAllNodesQueriedSomeDead))

	// node 3 reports right behind the failed callback for node 5
	f.sim.Trail(3, []byte{zwave.CCBasic, serialapi.CmdSet, 0xFF})
	require.NoError(t, s.SetNodeOn(5))
	f.rec.wait(t, "timeout", code(5, zwave.CodeTimeout))
	f.rec.wait(t, "node event", forNode(zwave.NotificationNodeEvent, 3))
}

func TestSwitchAll(t *testing.T) {
	f := readyFixture(t, simulator.DefaultConfig(testHome), nil)
	s := f.session

	require.NoError(t, s.SwitchAllOn())
	require.Eventually(t, func() bool {
		return valueData(t, s, switchID(3)) == true && valueData(t, s, switchID(5)) == true
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, s.SwitchAllOff())
	require.Eventually(t, func() bool {
		return valueData(t, s, switchID(3)) == false && valueData(t, s, levelID(4)) == uint8(0)
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, uint32(2), s.Statistics().BroadcastWriteCnt)
}

func TestSetNodeName(t *testing.T) {
	names := &memNames{names: map[zwave.NodeID][2]string{}}
	f := readyFixture(t, simulator.DefaultConfig(testHome), func(c *Config) { c.Names = names })
	s := f.session

	require.NoError(t, s.SetNodeName(5, "Kettle"))
	require.NoError(t, s.SetNodeLocation(5, "Kitchen"))
	require.Eventually(t, func() bool {
		n, err := s.Registry().Node(5)
		return err == nil && n.Name == "Kettle" && n.Location == "Kitchen"
	}, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return names.get(5) == [2]string{"Kettle", "Kitchen"} }, time.Second, 5*time.Millisecond)

	d, _ := f.sim.Device(5)
	assert.Equal(t, "Kettle", d.Name)
	name, err := s.Registry().NodeName(5)
	require.NoError(t, err)
	assert.Equal(t, "Kettle", name)
}

func TestSetNodeNameKeepsRunesWhole(t *testing.T) {
	f := readyFixture(t, simulator.DefaultConfig(testHome), nil)
	s := f.session

	// 17 bytes; cutting at 16 would split the last rune
	require.NoError(t, s.SetNodeName(5, "aÄÄÄÄÄÄÄÄ"))
	require.Eventually(t, func() bool {
		n, err := s.Registry().Node(5)
		return err == nil && n.Name == "aÄÄÄÄÄÄÄ"
	}, 5*time.Second, 5*time.Millisecond)

	d, _ := f.sim.Device(5)
	assert.True(t, utf8.ValidString(d.Name))
	assert.Equal(t, "aÄÄÄÄÄÄÄ", d.Name)
}

func TestTruncateName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Kettle", "Kettle"},
		{"0123456789abcdef", "0123456789abcdef"},
		{"0123456789abcdefg", "0123456789abcdef"},
		{"aÄÄÄÄÄÄÄÄ", "aÄÄÄÄÄÄÄ"},
		{"ÄÄÄÄÄÄÄÄÄ", "ÄÄÄÄÄÄÄÄ"},
		{"abcdefghijklmn€", "abcdefghijklmn"},
	}
	for _, tt := range tests {
		got := truncateName(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.LessOrEqual(t, len(got), maxNameLen)
	}
}

func TestStatisticsCountTraffic(t *testing.T) {
	f := readyFixture(t, simulator.DefaultConfig(testHome), nil)
	stats := f.session.Statistics()
	assert.Positive(t, stats.ReadCnt)
	assert.Positive(t, stats.WriteCnt)
	assert.Positive(t, stats.ACKCnt)
	assert.Positive(t, stats.SOFCnt)
	assert.Zero(t, stats.BadChecksum)
}

func TestCommandsBeforeReady(t *testing.T) {
	f := newFixture(t, simulator.DefaultConfig(testHome), func(c *Config) { c.Homes = claimer{allow: false} })
	s := f.session

	f.rec.wait(t, "driver failed", ofType(zwave.NotificationDriverFailed))
	assert.Equal(t, StateFailed, s.State())
	assert.ErrorIs(t, s.SetNodeOn(3), zwave.ErrNotReady)
	assert.ErrorIs(t, s.CancelControllerCommand(), zwave.ErrNotReady)

	s.Close()
	assert.Equal(t, StateStopped, s.State())
	got := f.rec.all()
	assert.Equal(t, zwave.NotificationDriverRemoved, got[len(got)-1].Type)
}

func TestShutdownReportsAbandonedCommands(t *testing.T) {
	f := readyFixture(t, simulator.DefaultConfig(testHome), func(c *Config) { c.ShutdownGrace = 100 * time.Millisecond })
	s := f.session

	started := make(chan struct{})
	require.NoError(t, s.submit(job{name: "block", run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}))
	<-started
	require.NoError(t, s.SetNodeOn(3))
	require.NoError(t, s.BeginControllerCommand(ControllerCommandAddDevice, 0))

	s.Close()
	s.Close()

	assert.Equal(t, StateStopped, s.State())
	assert.Equal(t, 1, f.rec.count(code(3, zwave.CodeTimeout)))
	assert.Equal(t, 1, f.rec.count(controllerState(zwave.ControllerStateFailed)))

	got := f.rec.all()
	assert.Equal(t, zwave.NotificationDriverRemoved, got[len(got)-1].Type)
	assert.Equal(t, 1, f.rec.count(ofType(zwave.NotificationDriverRemoved)))
	assert.ErrorIs(t, s.SetNodeOn(3), zwave.ErrNotReady)
}

func TestShutdownFailsStartedCommandOnce(t *testing.T) {
	f := readyFixture(t, simulator.DefaultConfig(testHome), func(c *Config) { c.ShutdownGrace = 100 * time.Millisecond })
	s := f.session

	started := make(chan struct{})
	require.True(t, s.state.CompareAndSwap(int32(StateReady), int32(StateBusy)))
	require.NoError(t, s.submit(job{name: "add_device", controller: true, run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		// inclusion starts after the grace period ran out
		return s.addDevice(ctx)
	}}))
	<-started

	s.Close()

	assert.Equal(t, StateStopped, s.State())
	assert.Equal(t, 1, f.rec.count(controllerState(zwave.ControllerStateStarting)))
	assert.Equal(t, 1, f.rec.count(controllerState(zwave.ControllerStateFailed)))
}
