package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"neweyes-online/internal/content"
	"neweyes-online/internal/db"
	"neweyes-online/internal/live"
)

func newTestDirectory(t *testing.T) (*memoryDirectory, *live.MemoryStore) {
	t.Helper()
	states := live.NewMemoryStore()
	return newMemoryDirectory(states, newMemoryLibrary()), states
}

func TestMemoryDirectoryAppendsBlocks(t *testing.T) {
	dir, _ := newTestDirectory(t)
	ctx := context.Background()
	if err := dir.CreateEpisode(ctx, &db.Episode{ID: episodeID, Title: "Vault"}); err != nil {
		t.Fatalf("create episode: %v", err)
	}
	if err := dir.CreateBlock(ctx, &db.EpisodeBlock{ID: foreignBlockID, EpisodeID: otherEpisodeID}); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected missing episode to be rejected, got %v", err)
	}

	ids := []string{sceneBlockID, secretBlockID, foreignBlockID}
	for _, id := range ids {
		if err := dir.CreateBlock(ctx, &db.EpisodeBlock{ID: id, EpisodeID: episodeID, Type: content.TypeNote}); err != nil {
			t.Fatalf("create block: %v", err)
		}
	}
	blocks, _ := dir.ListBlocks(ctx, episodeID)
	for i, block := range blocks {
		if block.ID != ids[i] || block.SortOrder != (i+1)*content.SortGap {
			t.Fatalf("unexpected block %d: %s at %d", i, block.ID, block.SortOrder)
		}
	}

	moved, err := dir.MoveBlock(ctx, sceneBlockID, content.DirectionUp)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.SortOrder != content.SortGap {
		t.Fatalf("expected first block to stay put, got %d", moved.SortOrder)
	}
	if _, err := dir.MoveBlock(ctx, foreignBlockID, content.DirectionDown); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := dir.MoveBlock(ctx, sceneBlockID, content.DirectionDown); err != nil {
		t.Fatalf("move: %v", err)
	}
	blocks, _ = dir.ListBlocks(ctx, episodeID)
	if blocks[0].ID != secretBlockID || blocks[1].ID != sceneBlockID || blocks[2].ID != foreignBlockID {
		t.Fatalf("unexpected order %s %s %s", blocks[0].ID, blocks[1].ID, blocks[2].ID)
	}
	if _, err := dir.MoveBlock(ctx, playerID, content.DirectionUp); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected unknown block to be reported, got %v", err)
	}
}

func TestMemoryDirectorySessions(t *testing.T) {
	dir, states := newTestDirectory(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	first := db.Session{ID: adminID, Name: "Friday", JoinCode: "ABC234", StorytellerID: userID}
	if err := dir.CreateSession(ctx, &first, live.NewState(first.ID, 600, now)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if state, err := states.Get(ctx, first.ID); err != nil || state.RemainingSeconds != 600 {
		t.Fatalf("expected live row alongside the session, got %v %v", state, err)
	}

	clash := db.Session{ID: player2ID, Name: "Saturday", JoinCode: "ABC234", StorytellerID: userID}
	if err := dir.CreateSession(ctx, &clash, live.NewState(clash.ID, 600, now)); err == nil {
		t.Fatalf("expected duplicate join code to be rejected")
	}
	if _, err := states.Get(ctx, clash.ID); !errors.Is(err, live.ErrSessionNotFound) {
		t.Fatalf("expected no live row for the rejected session, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := dir.JoinSession(ctx, first.ID, playerID); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	players, _ := dir.ListPlayers(ctx, first.ID)
	if len(players) != 1 {
		t.Fatalf("expected one player, got %d", len(players))
	}
	if err := dir.JoinSession(ctx, clash.ID, playerID); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected unknown session, got %v", err)
	}
	if err := dir.CheckPresentable(ctx, first.ID, sceneBlockID); !errors.Is(err, live.ErrBlockNotFound) {
		t.Fatalf("expected missing block, got %v", err)
	}
}

func TestMemoryDirectoryCounts(t *testing.T) {
	dir, _ := newTestDirectory(t)
	ctx := context.Background()
	if err := dir.library.NPCs.Create(ctx, &db.NPC{ID: adminID, Name: "Vell"}); err != nil {
		t.Fatalf("create npc: %v", err)
	}
	count, err := dir.Count(ctx, "npcs")
	if err != nil || count != 1 {
		t.Fatalf("expected one npc, got %d %v", count, err)
	}
	if _, err := dir.Count(ctx, "dragons"); err == nil {
		t.Fatalf("expected unknown table to fail")
	}
}
