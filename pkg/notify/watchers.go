// Package notify delivers notifications to registered watchers. Each
// driver session owns a Dispatcher; every Dispatcher consults the same
// Watchers list, which the Manager owns.
package notify

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/urmzd/zwcore/pkg/zwave"
)

// WatcherFunc receives a notification together with the context value it
// was registered with.
type WatcherFunc func(n zwave.Notification, ctx any)

type watcher struct {
	fn  WatcherFunc
	id  uintptr
	ctx any
}

// Snapshot is an immutable view of the registered watchers.
type Snapshot []watcher

// Len returns the number of watchers in the snapshot.
func (s Snapshot) Len() int { return len(s) }

// Watchers is a copy-on-write watcher list. Readers load the current
// slice without locking; writers replace it under a mutex, so a reader
// never observes a partially updated list.
type Watchers struct {
	mu   sync.Mutex
	list atomic.Pointer[Snapshot]
}

// NewWatchers returns an empty list.
func NewWatchers() *Watchers {
	w := &Watchers{}
	w.list.Store(&Snapshot{})
	return w
}

// funcID identifies a WatcherFunc by its code pointer. Go functions are not
// comparable; closures created from the same literal share an id and must
// be told apart by their context.
func funcID(fn WatcherFunc) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

func validate(fn WatcherFunc, ctx any) error {
	if fn == nil {
		return fmt.Errorf("%w: nil callback", zwave.ErrInvalidWatcher)
	}
	if ctx != nil && !reflect.ValueOf(ctx).Comparable() {
		return fmt.Errorf("%w: context of type %T is not comparable", zwave.ErrInvalidWatcher, ctx)
	}
	return nil
}

// Add registers the (fn, ctx) pair.
func (w *Watchers) Add(fn WatcherFunc, ctx any) error {
	if err := validate(fn, ctx); err != nil {
		return err
	}
	id := funcID(fn)

	w.mu.Lock()
	defer w.mu.Unlock()
	cur := *w.list.Load()
	if slices.ContainsFunc(cur, func(x watcher) bool { return x.id == id && x.ctx == ctx }) {
		return zwave.ErrWatcherExists
	}
	next := make(Snapshot, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, watcher{fn: fn, id: id, ctx: ctx})
	w.list.Store(&next)
	return nil
}

// Remove unregisters the exact (fn, ctx) pair.
func (w *Watchers) Remove(fn WatcherFunc, ctx any) error {
	if err := validate(fn, ctx); err != nil {
		return err
	}
	id := funcID(fn)

	w.mu.Lock()
	defer w.mu.Unlock()
	cur := *w.list.Load()
	i := slices.IndexFunc(cur, func(x watcher) bool { return x.id == id && x.ctx == ctx })
	if i < 0 {
		return zwave.ErrUnknownWatcher
	}
	next := slices.Delete(slices.Clone(cur), i, i+1)
	w.list.Store(&next)
	return nil
}

// Clear removes every watcher.
func (w *Watchers) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.list.Store(&Snapshot{})
}

// Snapshot returns the current list. The result is never modified.
func (w *Watchers) Snapshot() Snapshot {
	return *w.list.Load()
}

// Len returns the number of registered watchers.
func (w *Watchers) Len() int {
	return len(w.Snapshot())
}
