package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/zwcore/pkg/zwave"
)

type fakeWriter struct {
	mu      sync.Mutex
	lines   []string
	flushes int
}

func (w *fakeWriter) WritePoint(p *write.Point) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = append(w.lines, write.PointToLineProtocol(p, time.Nanosecond))
}

func (w *fakeWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushes++
}

func (w *fakeWriter) snapshot() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.lines...)
}

type fakeNetwork struct {
	values map[zwave.ValueID]zwave.Value
}

func (n *fakeNetwork) Homes() []zwave.HomeID { return []zwave.HomeID{0xcafe} }

func (n *fakeNetwork) Value(vid zwave.ValueID) (zwave.Value, error) {
	v, ok := n.values[vid]
	if !ok {
		return zwave.Value{}, zwave.ErrUnknownValue
	}
	return v, nil
}

func (n *fakeNetwork) Statistics(zwave.HomeID) (zwave.DriverData, error) {
	return zwave.DriverData{ReadCnt: 12, WriteCnt: 9, Retries: 1}, nil
}

var (
	power = zwave.ValueID{HomeID: 0xcafe, NodeID: 3, Genre: zwave.GenreUser, CommandClassID: zwave.CCMeter, Instance: 1, Index: 8, Type: zwave.ValueTypeDecimal}
	sw    = zwave.ValueID{HomeID: 0xcafe, NodeID: 3, Genre: zwave.GenreUser, CommandClassID: zwave.CCSwitchBinary, Instance: 1, Type: zwave.ValueTypeBool}
	name  = zwave.ValueID{HomeID: 0xcafe, NodeID: 3, Genre: zwave.GenreSystem, CommandClassID: zwave.CCNodeNaming, Instance: 1, Type: zwave.ValueTypeString}
)

func newTestSink() (*Sink, *fakeWriter) {
	w := &fakeWriter{}
	n := &fakeNetwork{values: map[zwave.ValueID]zwave.Value{
		power: {ID: power, Label: "Power", Units: "W", IsSet: true, Data: "12.5"},
		sw:    {ID: sw, Label: "Switch", IsSet: true, Data: true},
		name:  {ID: name, Label: "Name", IsSet: true, Data: "Lamp"},
	}}
	return newSink(DefaultConfig(), n, w), w
}

func changed(vid zwave.ValueID) zwave.Notification {
	return zwave.Notification{
		Type:    zwave.NotificationValueChanged,
		HomeID:  vid.HomeID,
		NodeID:  vid.NodeID,
		ValueID: vid,
		Time:    time.Unix(1700000000, 0),
	}
}

func TestWatchWritesNumericReadings(t *testing.T) {
	s, w := newTestSink()

	s.Watch(changed(power), s)
	s.Watch(changed(sw), s)
	s.Watch(changed(name), s)
	s.Watch(zwave.Notification{Type: zwave.NotificationNodeAdded, HomeID: 0xcafe, NodeID: 3}, s)

	lines := w.snapshot()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "zwave_value,")
	assert.Contains(t, lines[0], "units=W")
	assert.Contains(t, lines[0], "value=12.5")
	assert.Contains(t, lines[0], "1700000000000000000")
	assert.Contains(t, lines[1], "value=1")
}

func TestWatchSkipsUnknownValues(t *testing.T) {
	s, w := newTestSink()
	gone := power
	gone.Index = 99
	s.Watch(changed(gone), s)
	assert.Empty(t, w.snapshot())
}

func TestRunWritesStatistics(t *testing.T) {
	s, w := newTestSink()
	s.cfg.StatsInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	require.Eventually(t, func() bool { return len(w.snapshot()) > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	line := w.snapshot()[0]
	assert.Contains(t, line, "zwave_driver,home_id=0x0000cafe")
	assert.Contains(t, line, "read_cnt=12i")
	assert.Contains(t, line, "write_cnt=9i")
}

func TestCloseFlushes(t *testing.T) {
	s, w := newTestSink()
	s.Close()
	assert.Equal(t, 1, w.flushes)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	require.NoError(t, cfg.Validate())

	cfg.Bucket = ""
	assert.Error(t, cfg.Validate())
}
