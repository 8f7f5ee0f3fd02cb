package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"a9admin/internal/platform"
	"a9admin/internal/platform/memory"
	"a9admin/internal/session"
	"a9admin/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *memory.Store, *storage.SQLiteRepository) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	backend := memory.NewSeeded()
	sessions := session.NewManager(repo, 0, false)

	srv := NewServer(Options{
		Addr:     ":0",
		Backend:  backend,
		Sessions: sessions,
		Store:    repo,
		Theme:    "light",
		Layout:   "cards",
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return srv, backend, repo
}

func loginCookie(t *testing.T, srv *Server) *http.Cookie {
	t.Helper()

	sess, err := srv.sessions.Start(context.Background(), platform.LoginResult{
		AccessToken: "access-token",
		User:        platform.AdminUser{ID: "admin-1", Email: "admin@example.com", Name: "Admin"},
	})
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	return &http.Cookie{Name: session.CookieName, Value: sess.ID}
}

func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(srv, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestRequireSessionRedirectsToLogin(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestLoginFlow(t *testing.T) {
	srv, _, _ := newTestServer(t)

	form := url.Values{"email": {"admin@example.com"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := doRequest(srv, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusSeeOther, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard" {
		t.Errorf("Location = %q, want /dashboard", loc)
	}

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected session cookie to be set")
	}
}

func TestLoginRejectsMissingCredentials(t *testing.T) {
	srv, _, _ := newTestServer(t)

	form := url.Values{"email": {"admin@example.com"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := doRequest(srv, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	srv, _, _ := newTestServer(t)
	cookie := loginCookie(t, srv)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	rec := doRequest(srv, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("logout status = %d, want %d", rec.Code, http.StatusSeeOther)
	}

	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)
	rec = doRequest(srv, req)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("dashboard after logout = %d, want redirect %d", rec.Code, http.StatusSeeOther)
	}
}

func TestDashboardShowsPlatformTotals(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(loginCookie(t, srv))
	rec := doRequest(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	body := rec.Body.String()

	// Seeded balances: 64.50 + 12.00
	if !strings.Contains(body, "76.50") {
		t.Errorf("expected platform balance 76.50 in body")
	}
	// Top-ups: 100.00 + 20.00
	if !strings.Contains(body, "120.00") {
		t.Errorf("expected total top-ups 120.00 in body")
	}
	// Usage: 25.50 + 10.00 + 8.00
	if !strings.Contains(body, "43.50") {
		t.Errorf("expected total usage 43.50 in body")
	}
}

func TestUsersTypeFilter(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/users?type=business", nil)
	req.AddCookie(loginCookie(t, srv))
	rec := doRequest(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Nimbus Labs") {
		t.Error("expected business user in filtered listing")
	}
	if strings.Contains(body, "exp-1") {
		t.Error("did not expect explorer user in businesses listing")
	}
}

func TestUsersSearchQuery(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/users?q=lisbon", nil)
	req.AddCookie(loginCookie(t, srv))
	rec := doRequest(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "exp-1") {
		t.Error("expected matching user in search results")
	}
	if strings.Contains(body, "Nimbus Labs") {
		t.Error("did not expect non-matching user in search results")
	}
}

func TestUserBalancePage(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/users/exp-1/balance", nil)
	req.AddCookie(loginCookie(t, srv))
	rec := doRequest(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "64.50") {
		t.Error("expected authoritative balance in body")
	}
	// The N/A top-up and the engineless usage row share the Top Up bucket.
	if !strings.Contains(body, "Top Up") {
		t.Error("expected Top Up engine group")
	}
	if !strings.Contains(body, "GPT") {
		t.Error("expected GPT engine group")
	}
}

func TestUserBalanceCSVDownload(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/users/exp-1/balance.csv", nil)
	req.AddCookie(loginCookie(t, srv))
	rec := doRequest(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "transactions-exp-1.csv") {
		t.Errorf("Content-Disposition = %q, want filename transactions-exp-1.csv", cd)
	}

	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	if lines[0] != "Date,Description,Engine,Amount" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %v", len(lines), lines)
	}
	// Groups come out in first-seen order: Top Up rows first, then GPT.
	if lines[1] != `2025-01-10,"Credit purchase",Top Up,100.00` {
		t.Errorf("first row = %q", lines[1])
	}
	if lines[3] != `2025-01-10,"Prompt run",GPT,-25.50` {
		t.Errorf("last row = %q", lines[3])
	}
}

func TestToolStatusModeration(t *testing.T) {
	srv, backend, repo := newTestServer(t)

	form := url.Values{
		"tool_id":    {"tool-1"},
		"old_status": {"pending"},
		"new_status": {"approved"},
	}
	req := httptest.NewRequest(http.MethodPost, "/tools/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(loginCookie(t, srv))

	rec := doRequest(srv, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusSeeOther, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/tools" {
		t.Errorf("Location = %q, want /tools", loc)
	}

	tools, err := backend.UserTools(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("failed to load tools: %v", err)
	}
	var updated bool
	for _, tool := range tools {
		if tool.ID == "tool-1" && tool.Status == "approved" {
			updated = true
		}
	}
	if !updated {
		t.Error("expected tool-1 to be approved in the backend")
	}

	// No publisher wired, so the decision lands in the audit trail directly.
	entries, err := repo.ListAuditEntries(context.Background(), 10)
	if err != nil {
		t.Fatalf("failed to list audit entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ToolID != "tool-1" || e.OldStatus != "pending" || e.NewStatus != "approved" || e.Actor != "admin@example.com" {
		t.Errorf("unexpected audit entry: %+v", e)
	}
}

func TestToolStatusRejectsUnknownStatus(t *testing.T) {
	srv, _, _ := newTestServer(t)

	form := url.Values{
		"tool_id":    {"tool-1"},
		"new_status": {"promoted"},
	}
	req := httptest.NewRequest(http.MethodPost, "/tools/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(loginCookie(t, srv))

	rec := doRequest(srv, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestPromotionsPage(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/promotions", nil)
	req.AddCookie(loginCookie(t, srv))
	rec := doRequest(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Copy Studio") || !strings.Contains(body, "gold") {
		t.Error("expected promoted tool with tier in body")
	}
}

func TestUserVacanciesSearch(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/users/biz-1/vacancies?q=plumber", nil)
	req.AddCookie(loginCookie(t, srv))
	rec := doRequest(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if strings.Contains(rec.Body.String(), "Prompt Engineer") {
		t.Error("title search should have filtered out the vacancy")
	}
}

func TestUsageChartPNG(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/charts/usage.png", nil)
	req.AddCookie(loginCookie(t, srv))
	rec := doRequest(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("response is not a PNG")
	}
}

func TestUsageChartNoData(t *testing.T) {
	srv, backend, _ := newTestServer(t)
	backend.SetBalances(nil)

	req := httptest.NewRequest(http.MethodGet, "/charts/usage.png", nil)
	req.AddCookie(loginCookie(t, srv))
	rec := doRequest(srv, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
