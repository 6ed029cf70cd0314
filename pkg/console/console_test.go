package console

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/zwcore/pkg/capture"
	"github.com/urmzd/zwcore/pkg/manager"
	"github.com/urmzd/zwcore/pkg/zwave"
)

const testHome zwave.HomeID = 0x00c0ffee

// syncBuffer is written by commands and by the watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) take() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.buf.String()
	b.buf.Reset()
	return s
}

func (b *syncBuffer) contains(s string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(b.buf.String(), s)
}

func newTestConsole(t *testing.T, attach bool) (*Console, *syncBuffer) {
	t.Helper()
	opts := manager.DefaultOptions()
	opts.LogLevel = "warn"
	opts.PollInterval = time.Hour
	opts.ShutdownGrace = time.Second
	m, err := manager.Create(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Destroy() })

	out := &syncBuffer{}
	c := newConsole(m, out)
	require.NoError(t, m.AddWatcher(c.Watch, c))

	if attach {
		queried := make(chan struct{})
		var once sync.Once
		require.NoError(t, m.AddWatcher(func(n zwave.Notification, _ any) {
			if n.Type == zwave.NotificationAllNodesQueried || n.Type == zwave.NotificationAllNodesQueriedSomeDead {
				once.Do(func() { close(queried) })
			}
		}, t.Name()))
		c.Execute(fmt.Sprintf("attach sim://console?home=%d", uint32(testHome)))
		select {
		case <-queried:
		case <-time.After(5 * time.Second):
			t.Fatal("network was not queried in time")
		}
		out.take()
	}
	return c, out
}

func TestWithoutNetwork(t *testing.T) {
	c, out := newTestConsole(t, false)

	c.Execute("drivers")
	assert.Contains(t, out.take(), "No controllers attached")

	c.Execute("nodes")
	assert.Contains(t, out.take(), "No network is ready")

	c.Execute("frobnicate")
	assert.Contains(t, out.take(), "Unknown command: frobnicate")

	assert.False(t, c.Execute("   "))
	assert.True(t, c.Execute("quit"))
}

func TestNodesAndValues(t *testing.T) {
	c, out := newTestConsole(t, true)

	c.Execute("drivers")
	assert.Contains(t, out.take(), testHome.String())

	c.Execute("nodes")
	nodes := out.take()
	assert.Contains(t, nodes, "Lamp")
	assert.Contains(t, nodes, "Living Room")

	c.Execute("values 4")
	assert.Contains(t, out.take(), "Level")

	c.Execute("values 0")
	assert.Contains(t, out.take(), "Invalid node id")

	c.Execute("stats")
	assert.Contains(t, out.take(), "write=")
}

func TestSetAndWatch(t *testing.T) {
	c, out := newTestConsole(t, true)
	level := zwave.ValueID{HomeID: testHome, NodeID: 4, Genre: zwave.GenreUser, CommandClassID: zwave.CCSwitchMultilevel, Instance: 1, Type: zwave.ValueTypeByte}

	c.Execute("watch on")
	c.Execute("set " + level.String() + " 17")
	assert.Contains(t, out.take(), "Queued")

	assert.Eventually(t, func() bool { return out.contains("value_changed") }, 3*time.Second, 20*time.Millisecond)

	c.Execute("watch off")
	out.take()
	c.Execute("get " + level.String())
	assert.Contains(t, out.take(), "17")

	c.Execute("set zz 1")
	assert.Contains(t, out.take(), "Invalid value id")
}

func TestPollCommands(t *testing.T) {
	c, out := newTestConsole(t, true)
	level := zwave.ValueID{HomeID: testHome, NodeID: 4, Genre: zwave.GenreUser, CommandClassID: zwave.CCSwitchMultilevel, Instance: 1, Type: zwave.ValueTypeByte}

	c.Execute("poll " + level.String() + " 3")
	assert.Contains(t, out.take(), "every 3 cycle")

	assert.Eventually(t, func() bool {
		c.Execute("get " + level.String())
		return strings.Contains(out.take(), "poll=3")
	}, 3*time.Second, 20*time.Millisecond)

	c.Execute("poll " + level.String() + " 0")
	assert.Contains(t, out.take(), "Invalid intensity")

	c.Execute("unpoll " + level.String())
	assert.Contains(t, out.take(), "Stopped polling")
}

func TestUseSelectsHome(t *testing.T) {
	c, out := newTestConsole(t, false)

	c.Execute("use 0xdeadbeef")
	assert.Contains(t, out.take(), "0xdeadbeef")
	c.Execute("nodes")
	assert.Contains(t, out.take(), "Error")

	c.Execute("use kitchen")
	assert.Contains(t, out.take(), "Invalid home id")
}

func TestReplayPrintsCapture(t *testing.T) {
	c, out := newTestConsole(t, false)

	path := filepath.Join(t.TempDir(), "capture.cbor")
	l, err := capture.NewFileLogger(path, nil)
	require.NoError(t, err)
	l.Watch(zwave.Notification{Type: zwave.NotificationNodeAdded, HomeID: testHome, NodeID: 7, Time: time.Now()}, l)
	l.Watch(zwave.Notification{Type: zwave.NotificationDriverReady, HomeID: testHome, NodeID: 1, Time: time.Now()}, l)
	require.NoError(t, l.Close())

	c.Execute("replay " + path)
	text := out.take()
	assert.Contains(t, text, "node_added")
	assert.Contains(t, text, "driver_ready")
	assert.Contains(t, text, "2 notification(s)")

	c.Execute("replay /nonexistent/capture.cbor")
	assert.Contains(t, out.take(), "Error")
}
