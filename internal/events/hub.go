package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/zanzhit/flameguard/internal/domain/models"
)

const subscriberBuffer = 64

// Hub fans events out to every subscriber. A subscriber whose buffer is full
// misses the event instead of blocking the publisher.
type Hub struct {
	log     *slog.Logger
	mu      sync.RWMutex
	subs    map[int]chan models.Event
	next    int
	dropped int64
	closed  bool
}

func New(log *slog.Logger) *Hub {
	return &Hub{
		log:  log,
		subs: make(map[int]chan models.Event),
	}
}

// Subscribe returns a buffered channel of events and a function that detaches it.
func (h *Hub) Subscribe() (<-chan models.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan models.Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.next
	h.next++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

func (h *Hub) Publish(ev models.Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped++
			h.log.Warn("dropped event for slow subscriber",
				slog.String("kind", string(ev.Kind)),
				slog.Int64("dropped_total", h.dropped),
			)
		}
	}
}

func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.dropped
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs)
}

// Close detaches every subscriber. Later publishes are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
	h.closed = true
}
