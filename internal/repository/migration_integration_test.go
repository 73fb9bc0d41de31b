//go:build integration

package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventide/rsvp/internal/testutil"
)

// ============================================================================
// Migration Integration Tests
// ============================================================================

func TestIntegrationMigration_RSVPsTableSchema(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	for _, col := range []string{"id", "created_at", "name", "email", "special_requests"} {
		t.Run(col, func(t *testing.T) {
			exists, err := columnExists(ctx, pool, "rsvps", col)
			if err != nil {
				t.Fatalf("columnExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Column %q should exist in rsvps table", col)
			}
		})
	}
}

func TestIntegrationMigration_RSVPsConstraints(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	_, err := pool.Exec(ctx, `INSERT INTO rsvps (name, email) VALUES ('J', 'short@example.com')`)
	if err == nil {
		t.Error("Expected check constraint violation for name < 2 chars")
	}

	_, err = pool.Exec(ctx, `INSERT INTO rsvps (name, email, special_requests) VALUES ('Jo', 'long@example.com', $1)`,
		strings.Repeat("x", 501))
	if err == nil {
		t.Error("Expected check constraint violation for special_requests > 500 chars")
	}

	if _, err := pool.Exec(ctx, `INSERT INTO rsvps (name, email) VALUES ('Jo', 'unique@example.com')`); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	_, err = pool.Exec(ctx, `INSERT INTO rsvps (name, email) VALUES ('Jo', 'unique@example.com')`)
	if !isUniqueViolation(err) {
		t.Errorf("Expected unique violation for duplicate email, got %v", err)
	}
}

func TestIntegrationMigration_Rollback(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	root, err := testutil.ProjectRoot()
	if err != nil {
		t.Fatalf("ProjectRoot failed: %v", err)
	}

	downSQL, err := os.ReadFile(filepath.Join(root, "migrations", "000001_rsvps.down.sql"))
	if err != nil {
		t.Fatalf("read down migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(downSQL)); err != nil {
		t.Fatalf("apply down migration: %v", err)
	}

	exists, err := tableExists(ctx, pool, "rsvps")
	if err != nil {
		t.Fatalf("tableExists failed: %v", err)
	}
	if exists {
		t.Error("rsvps table should not exist after rollback")
	}

	upSQL, err := os.ReadFile(filepath.Join(root, "migrations", "000001_rsvps.up.sql"))
	if err != nil {
		t.Fatalf("read up migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		t.Fatalf("reapply up migration: %v", err)
	}
}

func TestIntegrationMigration_Idempotency(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	root, err := testutil.ProjectRoot()
	if err != nil {
		t.Fatalf("ProjectRoot failed: %v", err)
	}

	// Every statement in the up migration uses IF NOT EXISTS.
	upSQL, err := os.ReadFile(filepath.Join(root, "migrations", "000001_rsvps.up.sql"))
	if err != nil {
		t.Fatalf("read up migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		t.Fatalf("second apply should not fail: %v", err)
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)
	return exists, err
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, tableName, columnName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.columns
			WHERE table_schema = 'public'
			AND table_name = $1
			AND column_name = $2
		)
	`, tableName, columnName).Scan(&exists)
	return exists, err
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newMigrationTestEnv(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	unlock, err := testutil.AcquireDBLock(ctx, pool)
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetRSVPSchema(ctx, pool); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return ctx, pool
}
