// Package storage persists dashboard-local state: admin sessions, the saved
// account picker on the login page, and the moderation audit trail. Platform
// data (users, balances, tools) always comes from the backend API and is
// never stored here.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

type (
	// Session is one logged-in admin browser session.
	Session struct {
		ID           string
		AdminID      string
		Email        string
		Name         string
		AccessToken  string
		RefreshToken string
		CreatedAt    time.Time
		ExpiresAt    time.Time
	}

	// SavedAccount is an email remembered by the login page.
	SavedAccount struct {
		Email          string
		Name           string
		ProfilePicture string
		LastLoginAt    time.Time
	}

	// AuditEntry records one moderation decision.
	AuditEntry struct {
		ID         int64
		ToolID     string
		OldStatus  string
		NewStatus  string
		Actor      string
		OccurredAt time.Time
	}
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateSession stores a new session row.
func (r *SQLiteRepository) CreateSession(ctx context.Context, s Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, admin_id, email, name, access_token, refresh_token, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.AdminID, s.Email, s.Name, s.AccessToken, s.RefreshToken, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	slog.InfoContext(ctx, "Session created", "admin_id", s.AdminID, "expires_at", s.ExpiresAt)
	return nil
}

// GetSession returns the session with the given ID, or ErrNotFound.
func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (Session, error) {
	var s Session
	err := r.db.QueryRowContext(ctx, `
		SELECT id, admin_id, email, name, access_token, refresh_token, created_at, expires_at
		FROM sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.AdminID, &s.Email, &s.Name, &s.AccessToken, &s.RefreshToken, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func (r *SQLiteRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes every session whose expiry is before now and
// returns how many were removed.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted sessions: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Expired sessions removed", "count", n)
	}
	return n, nil
}

// UpsertSavedAccount remembers an account on the login page, refreshing its
// last-login time on every successful login.
func (r *SQLiteRepository) UpsertSavedAccount(ctx context.Context, a SavedAccount) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO saved_accounts (email, name, profile_picture, last_login_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			name = excluded.name,
			profile_picture = excluded.profile_picture,
			last_login_at = excluded.last_login_at`,
		a.Email, a.Name, a.ProfilePicture, a.LastLoginAt)
	if err != nil {
		return fmt.Errorf("upsert saved account: %w", err)
	}
	return nil
}

// ListSavedAccounts returns remembered accounts, most recent login first.
func (r *SQLiteRepository) ListSavedAccounts(ctx context.Context) ([]SavedAccount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT email, name, profile_picture, last_login_at
		FROM saved_accounts ORDER BY last_login_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list saved accounts: %w", err)
	}
	defer rows.Close()

	var out []SavedAccount
	for rows.Next() {
		var a SavedAccount
		if err := rows.Scan(&a.Email, &a.Name, &a.ProfilePicture, &a.LastLoginAt); err != nil {
			return nil, fmt.Errorf("scan saved account: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved accounts: %w", err)
	}
	return out, nil
}

// DeleteSavedAccount forgets a remembered account.
func (r *SQLiteRepository) DeleteSavedAccount(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM saved_accounts WHERE email = ?`, email); err != nil {
		return fmt.Errorf("delete saved account: %w", err)
	}
	return nil
}

// InsertAuditEntry appends one moderation decision to the audit trail.
func (r *SQLiteRepository) InsertAuditEntry(ctx context.Context, e AuditEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO moderation_audit (tool_id, old_status, new_status, actor, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ToolID, e.OldStatus, e.NewStatus, e.Actor, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	slog.InfoContext(ctx, "Audit entry recorded",
		"tool_id", e.ToolID,
		"new_status", e.NewStatus,
		"actor", e.Actor)
	return nil
}

// ListAuditEntries returns the most recent moderation decisions, newest first.
func (r *SQLiteRepository) ListAuditEntries(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tool_id, old_status, new_status, actor, occurred_at
		FROM moderation_audit ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.ToolID, &e.OldStatus, &e.NewStatus, &e.Actor, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}
