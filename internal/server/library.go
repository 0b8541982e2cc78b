package server

import (
	"context"
	"sort"
	"sync"

	"neweyes-online/internal/db"

	"gorm.io/gorm"
)

// Collection is CRUD over one library table. parentID scopes List for child
// records; an empty parentID lists everything.
type Collection[T any] interface {
	List(ctx context.Context, parentID string) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, record *T) error
	Save(ctx context.Context, record *T) error
	Delete(ctx context.Context, id string) error
}

type Library struct {
	NPCs    Collection[db.NPC]
	Traits  Collection[db.Trait]
	Actions Collection[db.Action]
	Items   Collection[db.Item]
	Effects Collection[db.ItemEffect]
}

func newDBLibrary(conn *gorm.DB) *Library {
	return &Library{
		NPCs:    db.NewTable[db.NPC](conn, ""),
		Traits:  db.NewTable[db.Trait](conn, "npc_id"),
		Actions: db.NewTable[db.Action](conn, "npc_id"),
		Items:   db.NewTable[db.Item](conn, ""),
		Effects: db.NewTable[db.ItemEffect](conn, "item_id"),
	}
}

func newMemoryLibrary() *Library {
	return &Library{
		NPCs: newMemoryCollection(
			func(r *db.NPC) string { return r.ID },
			func(r *db.NPC) string { return "" },
			func(r *db.NPC) string { return r.Name },
		),
		Traits: newMemoryCollection(
			func(r *db.Trait) string { return r.ID },
			func(r *db.Trait) string { return r.NPCID },
			func(r *db.Trait) string { return r.Name },
		),
		Actions: newMemoryCollection(
			func(r *db.Action) string { return r.ID },
			func(r *db.Action) string { return r.NPCID },
			func(r *db.Action) string { return r.Name },
		),
		Items: newMemoryCollection(
			func(r *db.Item) string { return r.ID },
			func(r *db.Item) string { return "" },
			func(r *db.Item) string { return r.Name },
		),
		Effects: newMemoryCollection(
			func(r *db.ItemEffect) string { return r.ID },
			func(r *db.ItemEffect) string { return r.ItemID },
			func(r *db.ItemEffect) string { return r.Name },
		),
	}
}

type memoryCollection[T any] struct {
	mu       sync.Mutex
	records  map[string]T
	idOf     func(*T) string
	parentOf func(*T) string
	nameOf   func(*T) string
}

func newMemoryCollection[T any](idOf, parentOf, nameOf func(*T) string) *memoryCollection[T] {
	return &memoryCollection[T]{
		records:  make(map[string]T),
		idOf:     idOf,
		parentOf: parentOf,
		nameOf:   nameOf,
	}
}

func (m *memoryCollection[T]) List(_ context.Context, parentID string) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]T, 0, len(m.records))
	for _, record := range m.records {
		if parentID != "" && m.parentOf(&record) != parentID {
			continue
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		return m.nameOf(&out[i]) < m.nameOf(&out[j])
	})
	return out, nil
}

func (m *memoryCollection[T]) Get(_ context.Context, id string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		var zero T
		return zero, db.ErrNotFound
	}
	return record, nil
}

func (m *memoryCollection[T]) Create(_ context.Context, record *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[m.idOf(record)] = *record
	return nil
}

func (m *memoryCollection[T]) Save(_ context.Context, record *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[m.idOf(record)] = *record
	return nil
}

func (m *memoryCollection[T]) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.records, id)
	return nil
}
