package app

import (
	"sync"

	"cyber-eval-service/internal/domain"
)

// StatusHub fans issuance status updates out to subscribers keyed by issuance state.
type StatusHub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.StatusUpdate]struct{}
}

func NewStatusHub() *StatusHub {
	return &StatusHub{
		subscribers: make(map[string]map[chan domain.StatusUpdate]struct{}),
	}
}

// Subscribe returns a channel that receives updates for one issuance state.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *StatusHub) Subscribe(state string) (<-chan domain.StatusUpdate, func()) {
	ch := make(chan domain.StatusUpdate, 8)

	h.mu.Lock()
	subs, ok := h.subscribers[state]
	if !ok {
		subs = make(map[chan domain.StatusUpdate]struct{})
		h.subscribers[state] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.subscribers[state]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.subscribers, state)
		}
	}
	return ch, cancel
}

// Publish delivers the update to every subscriber of its state.
func (h *StatusHub) Publish(update domain.StatusUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers[update.State] {
		select {
		case ch <- update:
		default:
			// slow reader: drop the oldest update so the newest always lands
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}

// Subscribers reports how many listeners wait on a state.
func (h *StatusHub) Subscribers(state string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[state])
}
