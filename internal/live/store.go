package live

import (
	"context"
	"sync"
)

// Store is the row-level contract the live mechanism needs from storage.
// Update runs fn against the current row and persists the result as one
// atomic write; when fn returns an error nothing is written.
type Store interface {
	Get(ctx context.Context, sessionID string) (State, error)
	Update(ctx context.Context, sessionID string, fn func(*State) error) (State, error)
}

type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (m *MemoryStore) Create(_ context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.SessionID] = state.Clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[sessionID]
	if !ok {
		return State{}, ErrSessionNotFound
	}
	return state.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, sessionID string, fn func(*State) error) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.states[sessionID]
	if !ok {
		return State{}, ErrSessionNotFound
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return State{}, err
	}
	m.states[sessionID] = next
	return next.Clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, sessionID)
}
