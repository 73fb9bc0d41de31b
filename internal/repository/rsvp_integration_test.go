//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventide/rsvp/internal/testutil"
)

// ============================================================================
// RSVP Repository Integration Tests
// ============================================================================

func TestIntegrationRSVPRepository_InsertAndFind(t *testing.T) {
	ctx, repo := newRSVPTestEnv(t)

	email := testutil.UniqueEmail("insert")
	rsvp := testutil.NewTestRSVP(t, email)

	if err := repo.InsertRSVP(ctx, rsvp); err != nil {
		t.Fatalf("InsertRSVP failed: %v", err)
	}
	if rsvp.ID == "" {
		t.Error("ID should be assigned by the store")
	}
	if rsvp.CreatedAt.IsZero() {
		t.Error("CreatedAt should be assigned by the store")
	}

	retrieved, err := repo.FindByEmail(ctx, email)
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if retrieved.ID != rsvp.ID {
		t.Errorf("ID mismatch: got %q, want %q", retrieved.ID, rsvp.ID)
	}
	if retrieved.Name != rsvp.Name {
		t.Errorf("Name mismatch: got %q, want %q", retrieved.Name, rsvp.Name)
	}
	if retrieved.SpecialRequests != nil {
		t.Errorf("SpecialRequests should be NULL, got %q", *retrieved.SpecialRequests)
	}
}

func TestIntegrationRSVPRepository_SpecialRequestsRoundTrip(t *testing.T) {
	ctx, repo := newRSVPTestEnv(t)

	email := testutil.UniqueEmail("requests")
	rsvp := testutil.NewTestRSVPWithRequests(t, email, "vegetarian")

	if err := repo.InsertRSVP(ctx, rsvp); err != nil {
		t.Fatalf("InsertRSVP failed: %v", err)
	}

	retrieved, err := repo.FindByEmail(ctx, email)
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if retrieved.SpecialRequests == nil || *retrieved.SpecialRequests != "vegetarian" {
		t.Errorf("SpecialRequests mismatch: got %v", retrieved.SpecialRequests)
	}
}

func TestIntegrationRSVPRepository_DuplicateEmail(t *testing.T) {
	ctx, repo := newRSVPTestEnv(t)

	email := testutil.UniqueEmail("dup")
	if err := repo.InsertRSVP(ctx, testutil.NewTestRSVP(t, email)); err != nil {
		t.Fatalf("InsertRSVP (first) failed: %v", err)
	}

	err := repo.InsertRSVP(ctx, testutil.NewTestRSVP(t, email))
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestIntegrationRSVPRepository_CaseSensitiveEmail(t *testing.T) {
	ctx, repo := newRSVPTestEnv(t)

	if err := repo.InsertRSVP(ctx, testutil.NewTestRSVP(t, "a@b.com")); err != nil {
		t.Fatalf("InsertRSVP failed: %v", err)
	}

	if _, err := repo.FindByEmail(ctx, "A@b.com"); !errors.Is(err, ErrRSVPNotFound) {
		t.Fatalf("expected ErrRSVPNotFound for different case, got %v", err)
	}

	if err := repo.InsertRSVP(ctx, testutil.NewTestRSVP(t, "A@b.com")); err != nil {
		t.Fatalf("InsertRSVP with different case should succeed: %v", err)
	}
}

func TestIntegrationRSVPRepository_NotFound(t *testing.T) {
	ctx, repo := newRSVPTestEnv(t)

	_, err := repo.FindByEmail(ctx, "nobody@nowhere.com")
	if !errors.Is(err, ErrRSVPNotFound) {
		t.Fatalf("expected ErrRSVPNotFound, got %v", err)
	}
}

func newRSVPTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()

	databaseURL := testutil.RequireEnv(t, "DATABASE_URL")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	t.Cleanup(pool.Close)

	unlock, err := testutil.AcquireDBLock(ctx, pool)
	if err != nil {
		t.Fatalf("failed to acquire DB lock: %v", err)
	}
	t.Cleanup(func() { _ = unlock() })

	if err := testutil.ResetRSVPSchema(ctx, pool); err != nil {
		t.Fatalf("failed to reset schema: %v", err)
	}

	return ctx, NewWithPool(pool)
}
