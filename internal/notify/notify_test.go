package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"neweyes-online/internal/live"
)

const sessionID = "0b7f3a52-7c1e-4d8b-a8e5-5d1f2a3c4b6e"

type recorder struct {
	states []live.State
	err    error
}

func (r *recorder) Publish(_ context.Context, state live.State) error {
	if r.err != nil {
		return r.err
	}
	r.states = append(r.states, state)
	return nil
}

func newTestListener(t *testing.T, publisher live.Publisher, active func() []string) *Listener {
	t.Helper()
	store := live.NewMemoryStore()
	state := live.NewState(sessionID, 300, time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC))
	state.EncounterTotal = 5
	if err := store.Create(context.Background(), state); err != nil {
		t.Fatalf("create: %v", err)
	}
	return &Listener{store: store, publisher: publisher, active: active, cfg: DefaultListenerConfig()}
}

func TestHandleNotificationPublishesFullRow(t *testing.T) {
	rec := &recorder{}
	l := newTestListener(t, rec, nil)
	if err := l.handleNotification(context.Background(), sessionID); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(rec.states) != 1 || rec.states[0].EncounterTotal != 5 {
		t.Fatalf("expected the stored row to be published, got %#v", rec.states)
	}
}

func TestHandleNotificationRejectsBadPayload(t *testing.T) {
	rec := &recorder{}
	l := newTestListener(t, rec, nil)
	if err := l.handleNotification(context.Background(), "not-a-uuid"); err == nil {
		t.Fatalf("expected invalid payload error")
	}
	missing := "9d1e4c55-1111-4a2b-8c3d-000000000000"
	if err := l.handleNotification(context.Background(), missing); !errors.Is(err, live.ErrSessionNotFound) {
		t.Fatalf("expected missing row error, got %v", err)
	}
	if len(rec.states) != 0 {
		t.Fatalf("expected nothing published")
	}
}

func TestSweepRepublishesActiveSessions(t *testing.T) {
	rec := &recorder{}
	l := newTestListener(t, rec, func() []string { return []string{sessionID, "gone"} })
	l.sweep(context.Background())
	if len(rec.states) != 1 || rec.states[0].SessionID != sessionID {
		t.Fatalf("expected one republished snapshot, got %#v", rec.states)
	}
}

func TestDecodeSnapshotChecksSubject(t *testing.T) {
	state := live.NewState(sessionID, 60, time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC))
	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := decodeSnapshot(Subject(sessionID), data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.DurationSeconds != 60 || got.RollResults == nil {
		t.Fatalf("unexpected snapshot %#v", got)
	}
	if _, err := decodeSnapshot(Subject("other"), data); err == nil {
		t.Fatalf("expected mismatched subject to be rejected")
	}
}
