package notify

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/zwcore/pkg/zwave"
)

func noop(zwave.Notification, any) {}

func other(zwave.Notification, any) {}

func TestWatcherExactPairMatching(t *testing.T) {
	w := NewWatchers()

	require.NoError(t, w.Add(noop, "ctx-a"))
	require.NoError(t, w.Add(noop, "ctx-b"))
	require.NoError(t, w.Add(other, "ctx-a"))
	assert.ErrorIs(t, w.Add(noop, "ctx-a"), zwave.ErrWatcherExists)
	assert.Equal(t, 3, w.Len())

	assert.ErrorIs(t, w.Remove(noop, "ctx-c"), zwave.ErrUnknownWatcher)
	require.NoError(t, w.Remove(noop, "ctx-a"))
	assert.ErrorIs(t, w.Remove(noop, "ctx-a"), zwave.ErrUnknownWatcher)
	assert.Equal(t, 2, w.Len())

	w.Clear()
	assert.Zero(t, w.Len())
}

func TestWatcherValidation(t *testing.T) {
	w := NewWatchers()
	assert.ErrorIs(t, w.Add(nil, nil), zwave.ErrInvalidWatcher)
	assert.ErrorIs(t, w.Add(noop, []int{1}), zwave.ErrInvalidWatcher)
	assert.ErrorIs(t, w.Remove(noop, map[string]int{}), zwave.ErrInvalidWatcher)

	type key struct{ id int }
	ptr := &key{id: 1}
	require.NoError(t, w.Add(noop, ptr))
	require.NoError(t, w.Add(noop, key{id: 1}))
	require.NoError(t, w.Remove(noop, ptr))
}

func TestSnapshotIsStableUnderMutation(t *testing.T) {
	w := NewWatchers()
	require.NoError(t, w.Add(noop, 0))
	snap := w.Snapshot()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Add(noop, i)
			_ = w.Snapshot().Len()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, snap.Len())
	assert.Equal(t, 51, w.Len())
}
