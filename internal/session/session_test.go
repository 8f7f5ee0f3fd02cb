package session

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"a9admin/internal/platform"
	"a9admin/internal/storage"
)

func newTestManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "admin.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewManager(repo, ttl, false)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin-1",
		"exp": exp.Unix(),
	})
	s, err := token.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestFromRequestRoundTrip(t *testing.T) {
	m := newTestManager(t, time.Hour)

	s, err := m.Start(context.Background(), platform.LoginResult{
		AccessToken: signedToken(t, time.Now().Add(24*time.Hour)),
		User:        platform.AdminUser{ID: "admin-1", Email: "admin@example.com"},
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	w := httptest.NewRecorder()
	m.SetCookie(w, s)

	r := httptest.NewRequest("GET", "/dashboard", nil)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}

	got, err := m.FromRequest(r)
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	if got.AdminID != "admin-1" || got.Email != "admin@example.com" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestFromRequestWithoutCookie(t *testing.T) {
	m := newTestManager(t, time.Hour)

	r := httptest.NewRequest("GET", "/dashboard", nil)
	if _, err := m.FromRequest(r); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestTokenExpiryBoundsSession(t *testing.T) {
	m := newTestManager(t, 12*time.Hour)

	// Token expiring before the TTL wins.
	exp := time.Now().Add(30 * time.Minute)
	s, err := m.Start(context.Background(), platform.LoginResult{
		AccessToken: signedToken(t, exp),
		User:        platform.AdminUser{ID: "admin-1", Email: "a@x"},
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if s.ExpiresAt.After(exp.Add(time.Second)) {
		t.Fatalf("session expiry %v should be capped by token expiry %v", s.ExpiresAt, exp)
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := TokenExpiry(signedToken(t, exp))
	if !ok {
		t.Fatal("expected expiry from signed token")
	}
	if !got.Equal(exp.UTC()) {
		t.Fatalf("expected %v, got %v", exp.UTC(), got)
	}

	if _, ok := TokenExpiry("not-a-jwt"); ok {
		t.Fatal("garbage token must not yield an expiry")
	}
	if _, ok := TokenExpiry(""); ok {
		t.Fatal("empty token must not yield an expiry")
	}
}

func TestEndDeletesSession(t *testing.T) {
	m := newTestManager(t, time.Hour)

	s, err := m.Start(context.Background(), platform.LoginResult{
		AccessToken: signedToken(t, time.Now().Add(time.Hour)),
		User:        platform.AdminUser{ID: "admin-1", Email: "a@x"},
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	w := httptest.NewRecorder()
	m.SetCookie(w, s)
	r := httptest.NewRequest("POST", "/logout", nil)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}

	if err := m.End(r); err != nil {
		t.Fatalf("end session: %v", err)
	}
	if _, err := m.FromRequest(r); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after logout, got %v", err)
	}
}
