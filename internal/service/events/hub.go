package events

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/oshokin/beacon-engine/internal/domain/event"
	"github.com/oshokin/beacon-engine/internal/logger"
)

// DefaultBufferSize is the per-subscriber buffer used when none is configured.
const DefaultBufferSize = 128

// Hub delivers published envelopes to every current subscriber.
type Hub struct {
	// subscribers maps subscription ids to their channels.
	subscribers map[uint64]chan *event.Envelope
	// nextID is the id of the next subscription.
	nextID uint64
	// bufferSize is the capacity of each subscriber channel.
	bufferSize int
	// closed is set once Close ran.
	closed bool
	// mu protects subscribers, nextID and closed.
	mu sync.Mutex

	// published counts envelopes handed to Publish.
	published atomic.Int64
	// dropped counts deliveries skipped because a subscriber was full.
	dropped atomic.Int64
}

// NewHub creates a hub with the given per-subscriber buffer.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &Hub{
		subscribers: make(map[uint64]chan *event.Envelope),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a subscriber. The returned function unsubscribes and
// closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan *event.Envelope, func()) {
	ch := make(chan *event.Envelope, h.bufferSize)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return ch, func() {}
	}

	h.nextID++
	id := h.nextID
	h.subscribers[id] = ch

	return ch, func() {
		h.remove(id)
	}
}

// Publish delivers a copy of envelope to every subscriber without blocking.
func (h *Hub) Publish(ctx context.Context, envelope *event.Envelope) {
	h.published.Add(1)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	for id, ch := range h.subscribers {
		select {
		case ch <- envelope.Clone():
		default:
			h.dropped.Add(1)
			logger.WarnKV(ctx, "Subscriber is full, dropping event", "subscriber", id, "tag", envelope.Tag)
		}
	}
}

// Close unsubscribes everybody. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true

	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}

// Subscribers returns the number of current subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers)
}

// Stats returns the number of published envelopes and dropped deliveries.
func (h *Hub) Stats() (published, dropped int64) {
	return h.published.Load(), h.dropped.Load()
}

// remove unsubscribes id and closes its channel.
func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.subscribers[id]
	if !ok {
		return
	}

	delete(h.subscribers, id)
	close(ch)
}
