package events

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/big14way/afri-asset/internal/core/domain"
)

// DefaultBufferSize is the per-subscriber channel capacity.
const DefaultBufferSize = 64

// Hub fans events out to subscribers. It implements service.Publisher.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	closed  bool
	dropped atomic.Uint64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*Subscription)}
}

// Subscription receives events published after it was created.
type Subscription struct {
	id     uint64
	hub    *Hub
	ch     chan domain.Event
	filter func(domain.Event) bool
	once   sync.Once
}

// C returns the receive channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan domain.Event {
	return s.ch
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*Subscription)

// WithBuffer sets the channel capacity.
func WithBuffer(n int) SubscribeOption {
	return func(s *Subscription) {
		if n > 0 {
			s.ch = make(chan domain.Event, n)
		}
	}
}

// WithFilter delivers only events for which keep returns true.
func WithFilter(keep func(domain.Event) bool) SubscribeOption {
	return func(s *Subscription) {
		s.filter = keep
	}
}

// Subscribe registers a subscriber. On a closed hub the returned
// subscription's channel is already closed.
func (h *Hub) Subscribe(opts ...SubscribeOption) *Subscription {
	sub := &Subscription{hub: h}
	for _, opt := range opts {
		opt(sub)
	}
	if sub.ch == nil {
		sub.ch = make(chan domain.Event, DefaultBufferSize)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	h.nextID++
	sub.id = h.nextID
	h.subs[sub.id] = sub
	return sub
}

// Publish delivers ev to every subscriber without blocking. Subscribers
// whose buffer is full miss the event.
func (h *Hub) Publish(_ context.Context, ev domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.filter != nil && !sub.filter(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns the number of deliveries skipped because a subscriber
// was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close ends every subscription. Later subscriptions are closed at once.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		sub.once.Do(func() { close(sub.ch) })
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, sub.id)
	sub.once.Do(func() { close(sub.ch) })
}
