package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/zwcore/pkg/zwave"
)

func TestBrokerFansOut(t *testing.T) {
	b := NewBroker()
	a, c := b.Subscribe(), b.Subscribe()
	require.Equal(t, 2, b.Subscribers())

	n := valueChanged(3)
	b.Watch(n, b)

	assert.Equal(t, n, <-a)
	assert.Equal(t, n, <-c)
}

func TestBrokerDropsForFullSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	for i := range subscriberBuffer + 4 {
		b.Watch(valueChanged(i), b)
	}
	assert.Len(t, ch, subscriberBuffer)
	assert.Equal(t, uint64(4), b.Dropped())
	assert.Equal(t, valueChanged(0), <-ch)
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	b.Unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, b.Subscribers())
}

func TestBrokerAsWatcher(t *testing.T) {
	w := NewWatchers()
	b := NewBroker()
	require.NoError(t, w.Add(b.Watch, b))
	ch := b.Subscribe()

	d := NewDispatcher("broker", w)
	n := zwave.Notification{Type: zwave.NotificationNodeAdded, HomeID: 7, NodeID: 2}
	require.True(t, d.Enqueue(n))
	d.Close()

	assert.Equal(t, n, <-ch)
}

func TestBrokerClose(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	b.Close()

	_, ok := <-ch
	assert.False(t, ok)
	_, ok = <-b.Subscribe()
	assert.False(t, ok)
}
