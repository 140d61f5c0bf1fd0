package hub

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cuescout/internal/logging"
)

const (
	// DefaultTTL bounds how long an abandoned subscription survives before
	// a later Subscribe call reclaims it.
	DefaultTTL = 5 * time.Minute

	// sinkCapacity bounds each subscriber's message backlog. A sink that
	// falls this far behind starts losing lines, which the best-effort
	// contract allows.
	sinkCapacity = 64
)

// Subscription is one observer of progress events.
type Subscription struct {
	id      string
	ch      chan string
	created time.Time
	hub     *Hub

	closeOnce sync.Once
}

// Events returns the subscriber's receive channel. It is closed when the
// subscription ends, whether by Close or by TTL expiry.
func (s *Subscription) Events() <-chan string {
	return s.ch
}

// Close unregisters the subscription and closes its channel. Safe to call
// more than once and after TTL expiry.
func (s *Subscription) Close() {
	s.hub.remove(s.id)
}

// Hub fans progress messages out to every registered subscriber.
//
// There is no background reclaim timer: Subscribe sweeps expired entries as a
// side effect, which keeps cleanup cost proportional to subscription churn.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]*Subscription
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option configures the hub.
type Option func(*Hub)

// WithTTL overrides the subscription time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(h *Hub) {
		if ttl > 0 {
			h.ttl = ttl
		}
	}
}

// WithClock injects a time source (primarily for tests).
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// New constructs a broadcast hub.
func New(logger *slog.Logger, opts ...Option) *Hub {
	h := &Hub{
		subs:   make(map[string]*Subscription),
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: logging.WithComponent(logger, "hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a new observer and sweeps any subscription older than
// the TTL from the registry.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		id:      uuid.NewString(),
		ch:      make(chan string, sinkCapacity),
		created: h.now(),
		hub:     h,
	}

	h.mu.Lock()
	h.sweepLocked()
	h.subs[sub.id] = sub
	count := len(h.subs)
	h.mu.Unlock()

	h.logger.Debug("observer subscribed", logging.Int("subscribers", count))
	return sub
}

// Broadcast delivers the message to every registered sink, best effort. A
// sink with a full backlog drops the message; it is not removed here. The
// whole fan-out happens under the registry lock so no sink can be closed
// mid-delivery; sends never block.
func (h *Hub) Broadcast(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		select {
		case sub.ch <- message:
		default:
			h.logger.Warn("dropping status message for slow observer",
				logging.String("subscription", sub.id))
		}
	}
}

// Subscribers reports the current registry size.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()
	if ok {
		sub.closeOnce.Do(func() { close(sub.ch) })
	}
}

// sweepLocked drops subscriptions older than the TTL. Callers hold h.mu.
func (h *Hub) sweepLocked() {
	cutoff := h.now().Add(-h.ttl)
	removed := 0
	for id, sub := range h.subs {
		if sub.created.Before(cutoff) {
			delete(h.subs, id)
			sub.closeOnce.Do(func() { close(sub.ch) })
			removed++
		}
	}
	if removed > 0 {
		h.logger.Info("reclaimed stale subscriptions", logging.Int("count", removed))
	}
}
