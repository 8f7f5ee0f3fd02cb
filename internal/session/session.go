// Package session manages admin login sessions. Sessions live server-side in
// SQLite; the browser only ever holds an opaque cookie with the session ID.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"a9admin/internal/platform"
	"a9admin/internal/storage"
)

// CookieName is the session cookie set after a successful login.
const CookieName = "a9admin_session"

// DefaultTTL caps a session's lifetime when the access token carries no
// usable expiry.
const DefaultTTL = 12 * time.Hour

// ErrNoSession is returned when the request carries no valid session.
var ErrNoSession = errors.New("no active session")

// Store is the persistence the manager needs.
type Store interface {
	CreateSession(ctx context.Context, s storage.Session) error
	GetSession(ctx context.Context, id string) (storage.Session, error)
	DeleteSession(ctx context.Context, id string) error
	UpsertSavedAccount(ctx context.Context, a storage.SavedAccount) error
}

type Manager struct {
	store  Store
	ttl    time.Duration
	secure bool
}

func NewManager(store Store, ttl time.Duration, secureCookies bool) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl, secure: secureCookies}
}

// Start creates a session for a successful login, remembers the account for
// the login page, and returns the session to set as a cookie.
func (m *Manager) Start(ctx context.Context, login platform.LoginResult) (storage.Session, error) {
	now := time.Now().UTC()
	expires := now.Add(m.ttl)
	if exp, ok := TokenExpiry(login.AccessToken); ok && exp.Before(expires) {
		expires = exp
	}

	s := storage.Session{
		ID:           uuid.NewString(),
		AdminID:      login.User.ID,
		Email:        login.User.Email,
		Name:         login.User.Name,
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
		CreatedAt:    now,
		ExpiresAt:    expires,
	}
	if err := m.store.CreateSession(ctx, s); err != nil {
		return storage.Session{}, fmt.Errorf("start session: %w", err)
	}

	if err := m.store.UpsertSavedAccount(ctx, storage.SavedAccount{
		Email:          login.User.Email,
		Name:           login.User.Name,
		ProfilePicture: login.User.ProfilePicture,
		LastLoginAt:    now,
	}); err != nil {
		// The session is already valid; losing the picker entry is tolerable.
		return s, nil
	}
	return s, nil
}

// FromRequest resolves the request's session cookie. Expired sessions are
// deleted on sight and reported as ErrNoSession.
func (m *Manager) FromRequest(r *http.Request) (storage.Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return storage.Session{}, ErrNoSession
	}

	s, err := m.store.GetSession(r.Context(), cookie.Value)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Session{}, ErrNoSession
	}
	if err != nil {
		return storage.Session{}, err
	}

	if time.Now().UTC().After(s.ExpiresAt) {
		_ = m.store.DeleteSession(r.Context(), s.ID)
		return storage.Session{}, ErrNoSession
	}
	return s, nil
}

// End deletes the session referenced by the request cookie, if any.
func (m *Manager) End(r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	return m.store.DeleteSession(r.Context(), cookie.Value)
}

// SetCookie writes the session cookie on the response.
func (m *Manager) SetCookie(w http.ResponseWriter, s storage.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie on the response.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenExpiry extracts the exp claim from a JWT without verifying its
// signature. Verification belongs to the backend that issued the token; the
// dashboard only needs the expiry to bound the session.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time.UTC(), true
}
