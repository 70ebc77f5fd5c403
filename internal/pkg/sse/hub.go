package sse

import (
	"sync"
)

// Event is a server-sent event addressed to a single employee.
type Event struct {
	Email string
	Event string
	Data  interface{}
}

// Hub manages SSE subscribers keyed by employee email. One employee may hold
// several subscriptions at once (multiple tabs).
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a subscriber for an employee and returns the event
// channel plus a cleanup function. Cleanup must be called on teardown or the
// callback leaks past the consuming view.
func (h *Hub) Subscribe(email string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 10)

	if h.subscribers[email] == nil {
		h.subscribers[email] = make(map[chan Event]struct{})
	}
	h.subscribers[email][ch] = struct{}{}

	cleanup := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subscribers[email][ch]; !ok {
			return
		}
		delete(h.subscribers[email], ch)
		close(ch)
		if len(h.subscribers[email]) == 0 {
			delete(h.subscribers, email)
		}
	}

	return ch, cleanup
}

// Publish sends an event to every subscriber of one employee. A slow
// subscriber with a full channel is skipped rather than blocked on.
func (h *Hub) Publish(email string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subs, ok := h.subscribers[email]; ok {
		for ch := range subs {
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// PublishToMany fans one event out to several employees.
func (h *Hub) PublishToMany(emails []string, event Event) {
	for _, email := range emails {
		eventCopy := event
		eventCopy.Email = email
		h.Publish(email, eventCopy)
	}
}

// SubscriberCount returns the number of active subscriptions for an employee.
func (h *Hub) SubscriberCount(email string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subs, ok := h.subscribers[email]; ok {
		return len(subs)
	}
	return 0
}

// TotalSubscribers returns the number of active subscriptions across all
// employees.
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}
