package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/zwcore/pkg/zwave"
)

type sink struct {
	mu  sync.Mutex
	got []zwave.Notification
}

func (s *sink) watch(n zwave.Notification, ctx any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
}

func (s *sink) snapshot() []zwave.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]zwave.Notification(nil), s.got...)
}

func valueChanged(i int) zwave.Notification {
	return zwave.Notification{
		Type:    zwave.NotificationValueChanged,
		HomeID:  1,
		NodeID:  zwave.NodeID(i%232 + 1),
		ValueID: zwave.ValueID{HomeID: 1, NodeID: zwave.NodeID(i%232 + 1), Index: uint8(i)},
		RawCode: uint8(i >> 8),
	}
}

func TestDeliveryPreservesProductionOrder(t *testing.T) {
	w := NewWatchers()
	a, b := &sink{}, &sink{}
	require.NoError(t, w.Add(a.watch, "a"))
	require.NoError(t, w.Add(b.watch, "b"))

	d := NewDispatcher("test", w)
	const n = 1000
	produced := make([]zwave.Notification, n)
	for i := range n {
		produced[i] = valueChanged(i)
		require.True(t, d.Enqueue(produced[i]))
	}
	d.Close()

	assert.Equal(t, produced, a.snapshot())
	assert.Equal(t, produced, b.snapshot())
	p, del := d.Counts()
	assert.Equal(t, uint64(n), p)
	assert.Equal(t, uint64(n), del)
}

func TestLateWatcherDoesNotSeeEarlierNotifications(t *testing.T) {
	w := NewWatchers()
	early, late := &sink{}, &sink{}
	require.NoError(t, w.Add(early.watch, 1))

	block := make(chan struct{})
	blocker := func(zwave.Notification, any) { <-block }
	require.NoError(t, w.Add(blocker, nil))

	d := NewDispatcher("test", w)
	d.Enqueue(valueChanged(1))
	require.NoError(t, w.Add(late.watch, 2))
	d.Enqueue(valueChanged(2))
	close(block)
	d.Close()

	assert.Len(t, early.snapshot(), 2)
	got := late.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, valueChanged(2), got[0])
}

func TestRemovedWatcherCompletesInFlight(t *testing.T) {
	w := NewWatchers()
	s := &sink{}
	require.NoError(t, w.Add(s.watch, "x"))

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	gate := func(zwave.Notification, any) {
		once.Do(func() { close(started) })
		<-release
	}
	require.NoError(t, w.Add(gate, "gate"))

	d := NewDispatcher("test", w)
	d.Enqueue(valueChanged(1))
	d.Enqueue(valueChanged(2))

	<-started
	require.NoError(t, w.Remove(s.watch, "x"))
	d.Enqueue(valueChanged(3))
	close(release)
	d.Close()

	got := s.snapshot()
	require.Len(t, got, 2, "queued before removal: delivered; after removal: not")
	assert.Equal(t, valueChanged(1), got[0])
	assert.Equal(t, valueChanged(2), got[1])
}

func TestPanickingWatcherDoesNotStopDelivery(t *testing.T) {
	w := NewWatchers()
	require.NoError(t, w.Add(func(zwave.Notification, any) { panic("boom") }, nil))
	s := &sink{}
	require.NoError(t, w.Add(s.watch, nil))

	d := NewDispatcher("test", w)
	d.Enqueue(valueChanged(1))
	d.Enqueue(valueChanged(2))
	d.Close()

	assert.Len(t, s.snapshot(), 2)
}

func TestEnqueueAfterCloseIsRejected(t *testing.T) {
	d := NewDispatcher("test", NewWatchers())
	d.Close()
	d.Close()
	assert.False(t, d.Enqueue(valueChanged(1)))
}

func TestSlowWatcherDoesNotBlockProducer(t *testing.T) {
	w := NewWatchers()
	release := make(chan struct{})
	require.NoError(t, w.Add(func(zwave.Notification, any) { <-release }, nil))
	d := NewDispatcher("test", w)

	done := make(chan struct{})
	go func() {
		for i := range 100 {
			d.Enqueue(valueChanged(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer blocked on a slow watcher")
	}
	close(release)
	d.Close()
}
