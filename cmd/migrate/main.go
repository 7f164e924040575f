// Package main applies or rolls back the actor, item, and chat schema.
package main

import (
	"errors"
	"flag"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arianrhod/internal/config"
	"github.com/cory-johannsen/arianrhod/internal/observability"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	direction := flag.String("direction", "up", "up, down, or version")
	steps := flag.Int("steps", 0, "number of steps; 0 migrates all the way")
	source := flag.String("source", "migrations", "directory holding the migration files")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	m, err := migrate.New("file://"+*source, cfg.Database.DSN())
	if err != nil {
		logger.Fatal("opening migrations", zap.String("source", *source), zap.Error(err))
	}
	defer m.Close()

	if err := apply(m, *direction, *steps); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("migration failed", zap.String("direction", *direction), zap.Error(err))
		}
		logger.Info("schema already current")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logger.Fatal("reading schema version", zap.Error(err))
	}
	logger.Info("schema version",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
}

func apply(m *migrate.Migrate, direction string, steps int) error {
	switch direction {
	case "version":
		return nil
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
	}
	return errors.New(`direction must be "up", "down" or "version"`)
}
