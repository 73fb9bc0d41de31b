// Package main applies or rolls back the RSVP database schema.
//
// Usage:
//
//	migrate [up|down]
//
// The target database is read from DATABASE_URL.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/eventide/rsvp/internal/config"
	"github.com/eventide/rsvp/internal/migrate"
	"github.com/eventide/rsvp/migrations"
)

const migrateTimeout = 2 * time.Minute

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	if err := run(direction, logger); err != nil {
		logger.Error("migration failed", "direction", direction, "error", err)
		os.Exit(1)
	}
}

func run(direction string, logger *slog.Logger) error {
	if direction != "up" && direction != "down" {
		return fmt.Errorf("unknown direction %q (want up or down)", direction)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	runner, err := migrate.New(db, migrations.FS, logger)
	if err != nil {
		return err
	}

	if direction == "down" {
		version, err := runner.Down(ctx)
		if errors.Is(err, migrate.ErrNoMigrations) {
			logger.Info("nothing to roll back")
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("rolled back migration", "version", version)
		return nil
	}

	applied, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "count", applied)
	return nil
}
