// Package stream pushes workspace events to connected browsers over WebSocket.
package stream

import (
	"log/slog"
	"sync"

	"github.com/ashureev/genomics-xai/internal/workspace"
)

const defaultBuffer = 64

// Subscription is one live listener for a workspace. Events are delivered on
// Events until Done is closed.
type Subscription struct {
	events chan workspace.Event
	done   chan struct{}
	once   sync.Once
	reason string
}

func newSubscription(buffer int) *Subscription {
	return &Subscription{
		events: make(chan workspace.Event, buffer),
		done:   make(chan struct{}),
	}
}

// Events returns the delivery channel.
func (s *Subscription) Events() <-chan workspace.Event { return s.events }

// Done is closed when the hub drops the subscription.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Reason explains why Done was closed.
func (s *Subscription) Reason() string {
	<-s.done
	return s.reason
}

func (s *Subscription) close(reason string) {
	s.once.Do(func() {
		s.reason = reason
		close(s.done)
	})
}

// Hub tracks one subscription per user and browser tab.
type Hub struct {
	buffer int

	mu     sync.RWMutex
	active map[string]map[string]*Subscription
}

// NewHub creates a hub whose subscriptions buffer up to buffer events. A
// non-positive buffer selects the default.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		buffer: buffer,
		active: make(map[string]map[string]*Subscription),
	}
}

// Subscribe registers a listener for key, replacing any previous one.
func (h *Hub) Subscribe(key workspace.Key) *Subscription {
	sub := newSubscription(h.buffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.active[key.UserID]; !exists {
		h.active[key.UserID] = make(map[string]*Subscription)
	}
	if existing, exists := h.active[key.UserID][key.SessionID]; exists {
		existing.close("session replaced")
	}
	h.active[key.UserID][key.SessionID] = sub
	slog.Info("Panel stream registered", "user_id", key.UserID, "session_id", key.SessionID)
	return sub
}

// Unsubscribe removes sub if it is still the listener for key.
func (h *Hub) Unsubscribe(key workspace.Key, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.active[key.UserID]
	if !ok {
		return
	}
	if current, exists := sessions[key.SessionID]; exists && current == sub {
		delete(sessions, key.SessionID)
		if len(sessions) == 0 {
			delete(h.active, key.UserID)
		}
		current.close("unsubscribed")
		slog.Info("Panel stream unregistered", "user_id", key.UserID, "session_id", key.SessionID)
	}
}

// Active reports whether key has a listener.
func (h *Hub) Active(key workspace.Key) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.active[key.UserID][key.SessionID]
	return ok
}

// Publish implements workspace.Publisher. Events for a listener whose buffer
// is full are dropped.
func (h *Hub) Publish(key workspace.Key, ev workspace.Event) {
	h.mu.RLock()
	sub := h.active[key.UserID][key.SessionID]
	h.mu.RUnlock()
	if sub == nil {
		return
	}

	select {
	case <-sub.done:
	case sub.events <- ev:
	default:
		slog.Warn("Panel stream buffer full, dropping event",
			"user_id", key.UserID,
			"session_id", key.SessionID,
			"type", ev.Type)
	}
}

// CloseSession drops the listener for key.
func (h *Hub) CloseSession(key workspace.Key) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.active[key.UserID]
	if !ok {
		return
	}
	if sub, exists := sessions[key.SessionID]; exists {
		sub.close("session closed")
		delete(sessions, key.SessionID)
		slog.Info("Panel stream closed", "user_id", key.UserID, "session_id", key.SessionID)
	}
	if len(sessions) == 0 {
		delete(h.active, key.UserID)
	}
}

// CloseAll drops every listener.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sessions := range h.active {
		for _, sub := range sessions {
			sub.close("server shutting down")
		}
	}
	h.active = make(map[string]map[string]*Subscription)
}
