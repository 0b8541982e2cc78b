package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"neweyes-online/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
)

const migrationsDir = "db/migrations"

func main() {
	direction := flag.String("direction", "up", "up or down")
	steps := flag.Int("steps", 0, "number of migrations to apply (0 = all)")
	create := flag.String("create", "", "write an empty migration pair with this name and exit")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	config.SetupLogging(cfg)

	if *create != "" {
		up, down, err := createMigration(migrationsDir, *create, time.Now().UTC())
		if err != nil {
			log.Fatal().Err(err).Msg("create migration failed")
		}
		log.Info().Str("up", up).Str("down", down).Msg("created migration")
		return
	}

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}
	m, err := migrate.New("file://"+migrationsDir, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("migration setup failed")
	}
	if err := run(m, *direction, *steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Str("direction", *direction).Msg("database migration failed")
	}
	log.Info().Str("direction", *direction).Msg("database migrations applied")
}

func run(m *migrate.Migrate, direction string, steps int) error {
	switch direction {
	case "up":
		if steps > 0 {
			return m.Steps(steps)
		}
		return m.Up()
	case "down":
		if steps > 0 {
			return m.Steps(-steps)
		}
		return m.Down()
	default:
		return fmt.Errorf("unknown direction %q", direction)
	}
}

func createMigration(dir, name string, now time.Time) (string, string, error) {
	if strings.ContainsAny(name, " /\\") {
		return "", "", errors.New("migration name must not contain spaces or slashes")
	}
	base := fmt.Sprintf("%s_%s", now.Format("20060102150405"), name)
	upPath := filepath.Join(dir, base+".up.sql")
	downPath := filepath.Join(dir, base+".down.sql")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create migrations dir: %w", err)
	}
	if err := writeFile(upPath, "-- up migration\n"); err != nil {
		return "", "", err
	}
	if err := writeFile(downPath, "-- down migration\n"); err != nil {
		return "", "", err
	}
	return upPath, downPath, nil
}

func writeFile(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
