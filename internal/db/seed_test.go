package db

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"neweyes-online/internal/content"
	"neweyes-online/internal/live"
)

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "episode.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestReadEpisodeSeedDefaults(t *testing.T) {
	path := writeSeed(t, `
title: "  The Drowned Bell  "
summary: Salt and bronze.
blocks:
  - type: scene
    title: Harbor
  - type: encounter
    mode: encounter
    audience: storyteller
    metadata: '{"rounds": 3}'
`)
	seed, err := ReadEpisodeSeed(path)
	if err != nil {
		t.Fatalf("read seed: %v", err)
	}
	if seed.Title != "The Drowned Bell" {
		t.Fatalf("expected trimmed title, got %q", seed.Title)
	}
	if len(seed.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(seed.Blocks))
	}
	if seed.Blocks[0].Audience != content.AudienceBoth || seed.Blocks[0].Mode != content.ModeDisplay {
		t.Fatalf("expected defaults, got %#v", seed.Blocks[0])
	}
	if seed.Blocks[1].Audience != content.AudienceStoryteller {
		t.Fatalf("expected explicit audience kept, got %q", seed.Blocks[1].Audience)
	}
}

func TestReadEpisodeSeedRejectsUnknownType(t *testing.T) {
	path := writeSeed(t, `
title: Broken
blocks:
  - type: cutscene
`)
	if _, err := ReadEpisodeSeed(path); err == nil {
		t.Fatalf("expected unknown block type to fail")
	}
	if _, err := ReadEpisodeSeed(writeSeed(t, "summary: no title\n")); err == nil {
		t.Fatalf("expected missing title to fail")
	}
}

func TestBlockScope(t *testing.T) {
	episodeID := "6f1c1c9e-4a55-4d5e-9a41-1d2a5b0c0f01"
	session := Session{ID: "s", EpisodeID: &episodeID}
	visible := EpisodeBlock{EpisodeID: episodeID, Audience: content.AudiencePlayers}
	if err := BlockScope(session, visible); err != nil {
		t.Fatalf("expected presentable block, got %v", err)
	}
	private := EpisodeBlock{EpisodeID: episodeID, Audience: content.AudienceStoryteller}
	if err := BlockScope(session, private); !errors.Is(err, live.ErrBlockPrivate) {
		t.Fatalf("expected private block rejected, got %v", err)
	}
	other := EpisodeBlock{EpisodeID: "other", Audience: content.AudienceBoth}
	if err := BlockScope(session, other); !errors.Is(err, live.ErrBlockNotInScope) {
		t.Fatalf("expected out-of-episode block rejected, got %v", err)
	}
	if err := BlockScope(Session{}, visible); !errors.Is(err, live.ErrBlockNotInScope) {
		t.Fatalf("expected session without episode to reject blocks, got %v", err)
	}
}

func TestSessionStateRowNulls(t *testing.T) {
	state := live.NewState("s1", 600, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	row := sessionStateRow(state)
	if row.RollDie != nil || row.PresentedBlockID != nil {
		t.Fatalf("expected empty die and presented block to map to NULL")
	}
	state.RollDie = "d20"
	state.PresentedBlockID = "b1"
	row = sessionStateRow(state)
	back := row.ToLive()
	if back.RollDie != "d20" || back.PresentedBlockID != "b1" {
		t.Fatalf("expected nullable columns restored, got %#v", back)
	}
	if back.RollResults == nil || back.RollModes == nil {
		t.Fatalf("expected non-nil maps after conversion")
	}
}
