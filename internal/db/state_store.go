package db

import (
	"context"
	"errors"

	"neweyes-online/internal/live"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StateStore keeps live session state in the session_state table. Each
// Update locks the row, applies the mutator and saves it in one transaction.
type StateStore struct {
	conn *gorm.DB
}

func NewStateStore(conn *gorm.DB) *StateStore {
	return &StateStore{conn: conn}
}

func (s *StateStore) Create(ctx context.Context, state live.State) error {
	row := sessionStateRow(state)
	return s.conn.WithContext(ctx).Create(&row).Error
}

func (s *StateStore) Get(ctx context.Context, sessionID string) (live.State, error) {
	var row SessionState
	err := s.conn.WithContext(ctx).Where("session_id = ?", sessionID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return live.State{}, live.ErrSessionNotFound
	}
	if err != nil {
		return live.State{}, err
	}
	return row.ToLive(), nil
}

func (s *StateStore) Update(ctx context.Context, sessionID string, fn func(*live.State) error) (live.State, error) {
	var out live.State
	err := s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row SessionState
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ?", sessionID).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return live.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		state := row.ToLive()
		if err := fn(&state); err != nil {
			return err
		}
		next := sessionStateRow(state)
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		out = state
		return nil
	})
	if err != nil {
		return live.State{}, err
	}
	return out, nil
}
