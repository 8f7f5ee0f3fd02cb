package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "admin.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSessionLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	s := Session{
		ID:          "sess-1",
		AdminID:     "admin-1",
		Email:       "admin@example.com",
		Name:        "Admin",
		AccessToken: "tok",
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := repo.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.AdminID != "admin-1" || got.AccessToken != "tok" {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := repo.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := repo.GetSession(ctx, "sess-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, s := range []Session{
		{ID: "old", AdminID: "a", Email: "a@x", AccessToken: "t", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{ID: "live", AdminID: "a", Email: "a@x", AccessToken: "t", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	} {
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("create session %s: %v", s.ID, err)
		}
	}

	n, err := repo.DeleteExpiredSessions(ctx, now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired session deleted, got %d", n)
	}
	if _, err := repo.GetSession(ctx, "live"); err != nil {
		t.Fatalf("live session should survive: %v", err)
	}
}

func TestSavedAccountsUpsertAndOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	accounts := []SavedAccount{
		{Email: "first@example.com", Name: "First", LastLoginAt: base.Add(-time.Hour)},
		{Email: "second@example.com", Name: "Second", LastLoginAt: base},
	}
	for _, a := range accounts {
		if err := repo.UpsertSavedAccount(ctx, a); err != nil {
			t.Fatalf("upsert %s: %v", a.Email, err)
		}
	}

	// Re-login bumps the existing row instead of duplicating it.
	if err := repo.UpsertSavedAccount(ctx, SavedAccount{
		Email: "first@example.com", Name: "First Renamed", LastLoginAt: base.Add(time.Hour),
	}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	got, err := repo.ListSavedAccounts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(got))
	}
	if got[0].Email != "first@example.com" || got[0].Name != "First Renamed" {
		t.Fatalf("expected bumped account first, got %+v", got[0])
	}

	if err := repo.DeleteSavedAccount(ctx, "second@example.com"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = repo.ListSavedAccounts(ctx)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 account after delete, got %d", len(got))
	}
}

func TestAuditTrailNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	for i, status := range []string{"approved", "rejected", "pending"} {
		err := repo.InsertAuditEntry(ctx, AuditEntry{
			ToolID:     "tool-1",
			OldStatus:  "pending",
			NewStatus:  status,
			Actor:      "admin@example.com",
			OccurredAt: now.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("insert entry %d: %v", i, err)
		}
	}

	got, err := repo.ListAuditEntries(ctx, 2)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].NewStatus != "pending" || got[1].NewStatus != "rejected" {
		t.Fatalf("expected newest first, got %+v", got)
	}
}
