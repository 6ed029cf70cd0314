package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOOrder(t *testing.T) {
	q := New[int]()
	for i := range 100 {
		require.True(t, q.Push(i))
	}
	assert.Equal(t, 100, q.Len())

	for i := range 100 {
		v, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestCloseKeepsQueuedItems(t *testing.T) {
	q := New[string]()
	q.Push("a")
	q.Close()

	assert.False(t, q.Push("b"))
	assert.True(t, q.Closed())
	assert.Equal(t, []string{"a"}, q.Drain())
	assert.Zero(t, q.Len())
}

func TestConcurrentProducersSingleConsumer(t *testing.T) {
	q := New[int]()
	const producers, each = 8, 500

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range each {
				q.Push(p*each + i)
			}
		}()
	}

	seen := make(map[int]bool)
	last := make(map[int]int)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	consume := func() {
		for {
			v, ok := q.Pop()
			if !ok {
				return
			}
			p := v / each
			if prev, ok := last[p]; ok {
				assert.Greater(t, v, prev, "per-producer order must hold")
			}
			last[p] = v
			seen[v] = true
		}
	}

loop:
	for {
		select {
		case <-q.Ready():
			consume()
		case <-done:
			consume()
			break loop
		}
	}
	assert.Len(t, seen, producers*each)
}
