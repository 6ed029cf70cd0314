package notify

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/zwcore/pkg/queue"
	"github.com/urmzd/zwcore/pkg/zwave"
)

type delivery struct {
	n        zwave.Notification
	watchers Snapshot
}

// Dispatcher delivers one session's notifications in production order.
//
// Enqueue captures the watcher list at the moment of production and never
// blocks; a dedicated goroutine calls the captured watchers one after the
// other. A watcher added later never sees the notification; a watcher
// removed later still receives what was captured for it.
type Dispatcher struct {
	name     string
	watchers *Watchers
	q        *queue.Queue[delivery]
	done     chan struct{}

	produced  atomic.Uint64
	delivered atomic.Uint64

	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher that snapshots w.
func NewDispatcher(name string, w *Watchers) *Dispatcher {
	d := &Dispatcher{
		name:     name,
		watchers: w,
		q:        queue.New[delivery](),
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

// Enqueue appends n to the delivery sequence. It returns false after Close.
func (d *Dispatcher) Enqueue(n zwave.Notification) bool {
	ok := d.q.Push(delivery{n: n, watchers: d.watchers.Snapshot()})
	if ok {
		d.produced.Add(1)
	}
	return ok
}

// Pending returns the number of notifications not yet delivered.
func (d *Dispatcher) Pending() int {
	return d.q.Len()
}

// Counts returns how many notifications were produced and fully delivered.
func (d *Dispatcher) Counts() (produced, delivered uint64) {
	return d.produced.Load(), d.delivered.Load()
}

// Close stops accepting notifications and waits until everything already
// queued has been delivered.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(d.q.Close)
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		for {
			item, ok := d.q.Pop()
			if !ok {
				break
			}
			for _, w := range item.watchers {
				d.deliver(w, item.n)
			}
			d.delivered.Add(1)
		}
		if d.q.Closed() && d.q.Len() == 0 {
			return
		}
		<-d.q.Ready()
	}
}

func (d *Dispatcher) deliver(w watcher, n zwave.Notification) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("dispatcher", d.name).
				Str("notification", n.Type.String()).
				Interface("panic", r).
				Msg("Watcher panicked")
		}
	}()
	w.fn(n, w.ctx)
}
