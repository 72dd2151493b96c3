package events

import (
	"sync"

	"github.com/chatdeck/chatdeck/internal/shared/types"
)

// subscriberBuffer bounds how many undelivered events a subscriber may
// lag behind before events are dropped for it.
const subscriberBuffer = 64

// Bus fans status events out to subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan types.StatusEvent
	nextID int
	closed bool
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan types.StatusEvent)}
}

// Subscribe registers a new subscriber. The returned cancel function is
// idempotent and closes the channel.
func (b *Bus) Subscribe() (<-chan types.StatusEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan types.StatusEvent, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
// A subscriber whose buffer is full misses this event.
func (b *Bus) Publish(ev types.StatusEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of live subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
