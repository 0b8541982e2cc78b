package main

import (
	"context"
	"flag"

	"neweyes-online/internal/config"
	"neweyes-online/internal/db"

	"github.com/rs/zerolog/log"
)

func main() {
	filePath := flag.String("file", "episode.yaml", "path to episode yaml")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	config.SetupLogging(cfg)

	seed, err := db.ReadEpisodeSeed(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read episode")
	}

	conn, err := db.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}

	episode, err := db.ImportEpisode(context.Background(), db.NewRepository(conn), seed)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to import episode")
	}
	log.Info().Str("episode_id", episode.ID).Int("blocks", len(seed.Blocks)).Msg("loaded episode")
}
