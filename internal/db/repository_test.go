package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"neweyes-online/internal/config"
	"neweyes-online/internal/content"
	"neweyes-online/internal/live"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// openTestDB connects to DATABASE_URL and migrates it. Tests that need
// Postgres are skipped when it is unset.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("skipping test; DATABASE_URL not set")
	}
	cfg := config.Default()
	cfg.DatabaseURL = url
	conn, err := Open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return conn
}

func createTestEpisode(t *testing.T, repo *Repository, conn *gorm.DB) Episode {
	t.Helper()
	now := time.Now().UTC()
	episode := Episode{ID: uuid.NewString(), Title: "Ledger of Ash", CreatedAt: now, UpdatedAt: now}
	if err := repo.CreateEpisode(context.Background(), &episode); err != nil {
		t.Fatalf("create episode: %v", err)
	}
	t.Cleanup(func() {
		conn.Where("episode_id = ?", episode.ID).Delete(&EpisodeBlock{})
		conn.Where("id = ?", episode.ID).Delete(&Episode{})
	})
	return episode
}

func addBlock(t *testing.T, repo *Repository, episodeID, title string) EpisodeBlock {
	t.Helper()
	block := EpisodeBlock{
		ID:        uuid.NewString(),
		EpisodeID: episodeID,
		Type:      content.TypeScene,
		Audience:  content.AudienceBoth,
		Mode:      content.ModeDisplay,
		Title:     title,
	}
	if err := repo.CreateBlock(context.Background(), &block); err != nil {
		t.Fatalf("create block %s: %v", title, err)
	}
	return block
}

func blockTitles(t *testing.T, repo *Repository, episodeID string) []string {
	t.Helper()
	blocks, err := repo.ListBlocks(context.Background(), episodeID)
	if err != nil {
		t.Fatalf("list blocks: %v", err)
	}
	titles := make([]string, 0, len(blocks))
	for _, block := range blocks {
		titles = append(titles, block.Title)
	}
	return titles
}

func sameTitles(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestCreateBlockAppendsAfterMax(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	episode := createTestEpisode(t, repo, conn)

	first := addBlock(t, repo, episode.ID, "Harbor")
	if first.SortOrder != content.SortGap {
		t.Fatalf("expected first block at %d, got %d", content.SortGap, first.SortOrder)
	}
	if err := conn.Model(&EpisodeBlock{}).Where("id = ?", first.ID).Update("sort_order", 95).Error; err != nil {
		t.Fatalf("bump sort_order: %v", err)
	}
	second := addBlock(t, repo, episode.ID, "Lighthouse")
	if second.SortOrder != 95+content.SortGap {
		t.Fatalf("expected append after max, got %d", second.SortOrder)
	}

	orphan := EpisodeBlock{ID: uuid.NewString(), EpisodeID: uuid.NewString(), Type: content.TypeNote}
	if err := repo.CreateBlock(context.Background(), &orphan); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected missing episode, got %v", err)
	}
}

func TestMoveBlockSwapsNeighbors(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	episode := createTestEpisode(t, repo, conn)

	a := addBlock(t, repo, episode.ID, "A")
	b := addBlock(t, repo, episode.ID, "B")
	c := addBlock(t, repo, episode.ID, "C")

	moved, err := repo.MoveBlock(ctx, c.ID, content.DirectionUp)
	if err != nil {
		t.Fatalf("move up: %v", err)
	}
	if moved.SortOrder != b.SortOrder {
		t.Fatalf("expected C to take B's slot %d, got %d", b.SortOrder, moved.SortOrder)
	}
	if got := blockTitles(t, repo, episode.ID); !sameTitles(got, "A", "C", "B") {
		t.Fatalf("unexpected order after move up: %v", got)
	}

	if _, err := repo.MoveBlock(ctx, a.ID, content.DirectionUp); err != nil {
		t.Fatalf("move first up: %v", err)
	}
	if _, err := repo.MoveBlock(ctx, b.ID, content.DirectionDown); err != nil {
		t.Fatalf("move last down: %v", err)
	}
	if got := blockTitles(t, repo, episode.ID); !sameTitles(got, "A", "C", "B") {
		t.Fatalf("moves past either end must not reorder, got %v", got)
	}

	if _, err := repo.MoveBlock(ctx, uuid.NewString(), content.DirectionDown); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStateStoreUpdateRoundTrip(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	store := NewStateStore(conn)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	session := Session{
		ID:            uuid.NewString(),
		Name:          "Thursday table",
		JoinCode:      uuid.NewString()[:8],
		StorytellerID: uuid.NewString(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repo.CreateSession(ctx, &session, live.NewState(session.ID, 600, now)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	t.Cleanup(func() {
		conn.Where("session_id = ?", session.ID).Delete(&SessionState{})
		conn.Where("id = ?", session.ID).Delete(&Session{})
	})

	player := uuid.NewString()
	_, err := store.Update(ctx, session.ID, func(st *live.State) error {
		st.StartTimer(now)
		st.PauseTimer(now.Add(1500 * time.Millisecond))
		if err := st.SetRollMode(player, live.ModeDigital); err != nil {
			return err
		}
		return st.OpenRoll("d20", "Perception", live.TargetAll, "r1")
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TimerStatus != live.TimerPaused || got.RemainingSeconds != 599 || got.TimerCarryMillis != 500 {
		t.Fatalf("unexpected timer fields: %s %d %d", got.TimerStatus, got.RemainingSeconds, got.TimerCarryMillis)
	}
	if !got.RollOpen || got.RollDie != "d20" || got.ModeFor(player) != live.ModeDigital {
		t.Fatalf("unexpected roll fields: %#v", got)
	}

	sentinel := errors.New("rejected")
	_, err = store.Update(ctx, session.ID, func(st *live.State) error {
		st.ResetTimer(now)
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected mutator error, got %v", err)
	}
	after, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if after.TimerStatus != live.TimerPaused {
		t.Fatalf("failed update must not persist, got %s", after.TimerStatus)
	}

	if _, err := store.Update(ctx, uuid.NewString(), func(*live.State) error { return nil }); !errors.Is(err, live.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}
