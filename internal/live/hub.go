package live

import (
	"context"
	"sync"
)

// Source delivers full-row snapshots for one session. Delivery is
// at-least-once and unordered; the returned func stops delivery.
type Source interface {
	Subscribe(sessionID string, onSnapshot func(State)) (unsubscribe func())
}

// Hub fans snapshots out to in-process subscribers grouped by session.
type Hub struct {
	mu     sync.Mutex
	nextID int
	groups map[string]map[int]func(State)
}

func NewHub() *Hub {
	return &Hub{groups: make(map[string]map[int]func(State))}
}

func (h *Hub) Subscribe(sessionID string, onSnapshot func(State)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[sessionID]
	if group == nil {
		group = make(map[int]func(State))
		h.groups[sessionID] = group
	}
	id := h.nextID
	h.nextID++
	group[id] = onSnapshot

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			group := h.groups[sessionID]
			if group == nil {
				return
			}
			delete(group, id)
			if len(group) == 0 {
				delete(h.groups, sessionID)
			}
		})
	}
}

// Publish satisfies the notifier's publisher contract.
func (h *Hub) Publish(_ context.Context, state State) error {
	h.Broadcast(state)
	return nil
}

func (h *Hub) Broadcast(state State) {
	h.mu.Lock()
	group := h.groups[state.SessionID]
	handlers := make([]func(State), 0, len(group))
	for _, fn := range group {
		handlers = append(handlers, fn)
	}
	h.mu.Unlock()

	for _, fn := range handlers {
		fn(state.Clone())
	}
}

func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[sessionID])
}

// Sessions lists the sessions that currently have at least one subscriber.
func (h *Hub) Sessions() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.groups))
	for id := range h.groups {
		ids = append(ids, id)
	}
	return ids
}
