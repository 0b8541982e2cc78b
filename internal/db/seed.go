package db

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"neweyes-online/internal/content"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type EpisodeSeed struct {
	Title   string      `yaml:"title"`
	Summary string      `yaml:"summary"`
	Blocks  []BlockSeed `yaml:"blocks"`
}

type BlockSeed struct {
	Type     string `yaml:"type"`
	Title    string `yaml:"title"`
	Body     string `yaml:"body"`
	Audience string `yaml:"audience"`
	Mode     string `yaml:"mode"`
	ImageKey string `yaml:"image_key"`
	Metadata string `yaml:"metadata"`
}

// ReadEpisodeSeed parses a YAML episode file and fills block defaults.
func ReadEpisodeSeed(path string) (EpisodeSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EpisodeSeed{}, err
	}
	var seed EpisodeSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return EpisodeSeed{}, fmt.Errorf("parse %s: %w", path, err)
	}
	seed.Title = strings.TrimSpace(seed.Title)
	if seed.Title == "" {
		return EpisodeSeed{}, fmt.Errorf("parse %s: episode title is required", path)
	}
	for i := range seed.Blocks {
		block := &seed.Blocks[i]
		if block.Audience == "" {
			block.Audience = content.AudienceBoth
		}
		if block.Mode == "" {
			block.Mode = content.ModeDisplay
		}
		if !content.ValidBlockType(block.Type) {
			return EpisodeSeed{}, fmt.Errorf("block %d: unknown type %q", i+1, block.Type)
		}
		if !content.ValidAudience(block.Audience) {
			return EpisodeSeed{}, fmt.Errorf("block %d: unknown audience %q", i+1, block.Audience)
		}
		if !content.ValidMode(block.Mode) {
			return EpisodeSeed{}, fmt.Errorf("block %d: unknown mode %q", i+1, block.Mode)
		}
	}
	return seed, nil
}

// ImportEpisode creates the episode and appends its blocks in file order.
func ImportEpisode(ctx context.Context, repo *Repository, seed EpisodeSeed) (Episode, error) {
	now := time.Now().UTC()
	episode := Episode{
		ID:        uuid.NewString(),
		Title:     seed.Title,
		Summary:   seed.Summary,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateEpisode(ctx, &episode); err != nil {
		return Episode{}, err
	}
	for i, entry := range seed.Blocks {
		block := EpisodeBlock{
			ID:        uuid.NewString(),
			EpisodeID: episode.ID,
			Type:      entry.Type,
			Audience:  entry.Audience,
			Mode:      entry.Mode,
			Title:     entry.Title,
			Body:      entry.Body,
			ImageKey:  entry.ImageKey,
			Metadata:  content.ParseMetadata(entry.Metadata),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.CreateBlock(ctx, &block); err != nil {
			return episode, fmt.Errorf("block %d: %w", i+1, err)
		}
	}
	return episode, nil
}
