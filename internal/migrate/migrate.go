// Package migrate applies versioned SQL migrations over database/sql.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"sort"
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`
	selectAppliedSQL = `SELECT version FROM schema_migrations`
	selectLatestSQL  = `SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`
	insertVersionSQL = `INSERT INTO schema_migrations (version) VALUES ($1)`
	deleteVersionSQL = `DELETE FROM schema_migrations WHERE version = $1`
)

// ErrNoMigrations is returned by Down when nothing has been applied.
var ErrNoMigrations = errors.New("no applied migrations")

var fileRegex = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.(up|down)\.sql$`)

// Migration is one versioned schema change.
type Migration struct {
	Version string
	Name    string
	UpSQL   string
	DownSQL string
}

// Load reads NNNNNN_name.up.sql / .down.sql pairs from the root of fsys, sorted by version.
// Every version needs an up file; down files are optional.
func Load(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	byVersion := make(map[string]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := fileRegex.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}

		raw, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}

		version, name, direction := match[1], match[2], match[3]
		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if m.Name != name {
			return nil, fmt.Errorf("migration %s has conflicting names %q and %q", version, m.Name, name)
		}
		if direction == "up" {
			m.UpSQL = string(raw)
		} else {
			m.DownSQL = string(raw)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" {
			return nil, fmt.Errorf("migration %s_%s has no up file", m.Version, m.Name)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// Runner applies migrations to a database.
type Runner struct {
	db         *sql.DB
	migrations []Migration
	logger     *slog.Logger
}

// New creates a Runner for the migrations in fsys.
func New(db *sql.DB, fsys fs.FS, logger *slog.Logger) (*Runner, error) {
	migrations, err := Load(fsys)
	if err != nil {
		return nil, err
	}
	return &Runner{
		db:         db,
		migrations: migrations,
		logger:     logger.With("component", "migrate"),
	}, nil
}

// Up applies every pending migration in version order, each in its own
// transaction. It returns the number applied.
func (r *Runner) Up(ctx context.Context) (int, error) {
	if _, err := r.db.ExecContext(ctx, createTableSQL); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := r.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range r.migrations {
		if applied[m.Version] {
			continue
		}
		if err := r.apply(ctx, m.Version, m.UpSQL, insertVersionSQL); err != nil {
			return count, fmt.Errorf("apply %s_%s: %w", m.Version, m.Name, err)
		}
		r.logger.Info("migration applied", "version", m.Version, "name", m.Name)
		count++
	}

	return count, nil
}

// Down rolls back the most recently applied migration and returns its version.
func (r *Runner) Down(ctx context.Context) (string, error) {
	var version string
	err := r.db.QueryRowContext(ctx, selectLatestSQL).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoMigrations
		}
		return "", fmt.Errorf("select latest migration: %w", err)
	}

	var target *Migration
	for i := range r.migrations {
		if r.migrations[i].Version == version {
			target = &r.migrations[i]
			break
		}
	}
	if target == nil || target.DownSQL == "" {
		return "", fmt.Errorf("no down migration for version %s", version)
	}

	if err := r.apply(ctx, version, target.DownSQL, deleteVersionSQL); err != nil {
		return "", fmt.Errorf("roll back %s_%s: %w", target.Version, target.Name, err)
	}
	r.logger.Info("migration rolled back", "version", target.Version, "name", target.Name)

	return version, nil
}

func (r *Runner) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, selectAppliedSQL)
	if err != nil {
		return nil, fmt.Errorf("select applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migration versions: %w", err)
	}

	return applied, nil
}

// apply runs body and the bookkeeping statement in one transaction.
func (r *Runner) apply(ctx context.Context, version, body, bookkeeping string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	if _, err := tx.ExecContext(ctx, body); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, bookkeeping, version); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
