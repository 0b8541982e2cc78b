package db

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"neweyes-online/internal/config"
	"neweyes-online/internal/live"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

func TestNotifyTriggerSQLUsesChannel(t *testing.T) {
	stmts, err := notifyTriggerSQL("table_events")
	if err != nil {
		t.Fatalf("trigger sql: %v", err)
	}
	if !strings.Contains(stmts[0], "pg_notify('table_events', NEW.session_id::text)") {
		t.Fatalf("expected configured channel in function body:\n%s", stmts[0])
	}
	if strings.Contains(strings.Join(stmts, "\n"), "'session_state_changed'") {
		t.Fatalf("default channel must not be hard-coded")
	}

	quoted, err := notifyTriggerSQL("o'brien")
	if err != nil {
		t.Fatalf("trigger sql: %v", err)
	}
	if !strings.Contains(quoted[0], "pg_notify('o''brien',") {
		t.Fatalf("expected quoted literal, got:\n%s", quoted[0])
	}
}

func TestNotifyTriggerSQLRejectsBadChannel(t *testing.T) {
	for _, channel := range []string{"", strings.Repeat("c", 64)} {
		if _, err := notifyTriggerSQL(channel); !errors.Is(err, ErrInvalidChannel) {
			t.Fatalf("expected invalid channel for %q, got %v", channel, err)
		}
	}
	if err := InstallNotifyTrigger(nil, "session_state_changed"); err == nil {
		t.Fatalf("expected error for nil connection")
	}
}

func TestInstallNotifyTriggerNotifiesConfiguredChannel(t *testing.T) {
	conn := openTestDB(t)
	channel := "neweyes_test_" + uuid.NewString()[:8]
	if err := InstallNotifyTrigger(conn, channel); err != nil {
		t.Fatalf("install: %v", err)
	}
	t.Cleanup(func() {
		if err := InstallNotifyTrigger(conn, config.Default().NotifyChannel); err != nil {
			t.Errorf("restore trigger: %v", err)
		}
	})

	listener := pq.NewListener(os.Getenv("DATABASE_URL"), time.Second, time.Second, nil)
	t.Cleanup(func() { listener.Close() })
	if err := listener.Listen(channel); err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx := context.Background()
	now := time.Now().UTC()
	session := Session{
		ID:            uuid.NewString(),
		Name:          "Trigger check",
		JoinCode:      uuid.NewString()[:8],
		StorytellerID: uuid.NewString(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := NewRepository(conn).CreateSession(ctx, &session, live.NewState(session.ID, 60, now)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	t.Cleanup(func() {
		conn.Where("session_id = ?", session.ID).Delete(&SessionState{})
		conn.Where("id = ?", session.ID).Delete(&Session{})
	})

	select {
	case n := <-listener.Notify:
		if n == nil || n.Channel != channel || n.Extra != session.ID {
			t.Fatalf("unexpected notification %#v", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no notification on %s", channel)
	}
}
