package service

import (
	"sync"

	"smart-ocr-server/internal/domain"
)

const subscriberBuffer = 64

// EventHub fans pipeline events out to control-surface subscribers. The
// background goroutine only ever posts here; it never touches subscriber
// state directly. Slow subscribers drop events rather than block the run.
type EventHub struct {
	mu     sync.Mutex
	subs   map[int]chan domain.Event
	nextID int
	logger domain.Logger
}

func NewEventHub(logger domain.Logger) *EventHub {
	return &EventHub{
		subs:   make(map[int]chan domain.Event),
		logger: logger,
	}
}

// Publish posts an event to all subscribers without blocking.
func (h *EventHub) Publish(ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("Dropping event for slow subscriber", "subscriber", id, "kind", ev.Kind)
		}
	}
}

// Subscribe registers a new subscriber and returns its id and channel.
func (h *EventHub) Subscribe() (int, <-chan domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan domain.Event, subscriberBuffer)
	h.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *EventHub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}
