package app

import (
	"sync"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
)

// statusHub fans status snapshots out to the stream subscribers of one session.
type statusHub struct {
	// order is held while a snapshot is read and broadcast, so reads reach
	// subscribers in the order they were taken.
	order sync.Mutex
	// refs counts subscribers still using the hub; guarded by SessionService.hubsMu.
	refs int

	mu          sync.Mutex
	subscribers map[chan domain.StatusSnapshot]struct{}
}

func newStatusHub() *statusHub {
	return &statusHub{subscribers: make(map[chan domain.StatusSnapshot]struct{})}
}

func (h *statusHub) subscribe(initial domain.StatusSnapshot) chan domain.StatusSnapshot {
	ch := make(chan domain.StatusSnapshot, 8)
	ch <- initial
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *statusHub) unsubscribe(ch chan domain.StatusSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
}

func (h *statusHub) broadcast(snap domain.StatusSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- snap:
		default:
			// slow subscriber: drop the oldest update and keep the latest
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
