package server

import (
	"sync"

	"github.com/NathanBvumbwe/peza-ganyu/internal/pipeline"
)

const subscriberBuffer = 32

// ProgressHub fans pipeline progress events out to SSE subscribers.
// Publish never blocks; a subscriber that falls behind loses events.
type ProgressHub struct {
	mu   sync.Mutex
	subs map[chan pipeline.ProgressEvent]struct{}
}

// NewProgressHub creates an empty hub.
func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[chan pipeline.ProgressEvent]struct{})}
}

// Publish delivers ev to every subscriber. It satisfies
// pipeline.ProgressCallback.
func (h *ProgressHub) Publish(ev pipeline.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a new subscriber. The returned func unregisters it
// and closes the channel.
func (h *ProgressHub) Subscribe() (<-chan pipeline.ProgressEvent, func()) {
	ch := make(chan pipeline.ProgressEvent, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the current subscriber count.
func (h *ProgressHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
