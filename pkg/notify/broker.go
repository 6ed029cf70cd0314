package notify

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// subscriberBuffer is the channel depth given to each subscriber.
const subscriberBuffer = 16

// Broker fans notifications out to channel subscribers. Register
// Broker.Watch with the broker itself as context. A subscriber that falls
// behind loses notifications rather than stalling delivery.
type Broker struct {
	mu      sync.Mutex
	subs    map[chan zwave.Notification]struct{}
	dropped uint64
	closed  bool
}

// NewBroker returns a broker with no subscribers.
func NewBroker() *Broker {
	return &Broker{subs: make(map[chan zwave.Notification]struct{})}
}

// Watch is the WatcherFunc feeding the broker.
func (b *Broker) Watch(n zwave.Notification, _ any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- n:
		default:
			b.dropped++
			log.Debug().Str("type", n.Type.String()).Msg("Subscriber full, notification dropped")
		}
	}
}

// Subscribe returns a channel receiving every later notification.
func (b *Broker) Subscribe() chan zwave.Notification {
	ch := make(chan zwave.Notification, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a subscription.
func (b *Broker) Unsubscribe(ch chan zwave.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

// Subscribers returns the number of open subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns how many notifications were lost to full subscribers.
func (b *Broker) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close ends every subscription. Later subscribers get a closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		close(ch)
	}
	clear(b.subs)
	b.closed = true
}
