// Package http serves the admin dashboard: server-rendered pages over the
// platform backend, with session auth, short-lived caches, and CSV/PNG
// downloads.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"a9admin/internal/cache"
	"a9admin/internal/core"
	applog "a9admin/internal/log"
	"a9admin/internal/platform"
	"a9admin/internal/session"
	"a9admin/internal/storage"
	appweb "a9admin/web"
)

// StatusPublisher announces moderation decisions to the audit queue.
type StatusPublisher interface {
	PublishToolStatus(ctx context.Context, toolID, oldStatus, newStatus, actor string) error
}

// ReportExporter pushes a transaction report to an external spreadsheet.
type ReportExporter interface {
	ExportTransactions(ctx context.Context, userID string, groups []core.EngineGroup) (string, error)
}

// AuditReader lists recorded moderation decisions.
type AuditReader interface {
	ListAuditEntries(ctx context.Context, limit int) ([]storage.AuditEntry, error)
	InsertAuditEntry(ctx context.Context, e storage.AuditEntry) error
	ListSavedAccounts(ctx context.Context) ([]storage.SavedAccount, error)
	DeleteSavedAccount(ctx context.Context, email string) error
}

// Options bundles everything the server needs.
type Options struct {
	Addr     string
	Backend  platform.Backend
	Sessions *session.Manager
	Store    AuditReader

	// Publisher is optional; without it moderation decisions are written to
	// the audit trail synchronously.
	Publisher StatusPublisher

	// Exporter is optional; without it the export action is hidden.
	Exporter ReportExporter

	// Logger is optional; a default component-tagged logger is built when nil.
	Logger *applog.Logger

	// CacheTTL bounds the short-lived caches in front of the platform API.
	// Zero means one minute.
	CacheTTL time.Duration

	Theme  string
	Layout string
}

type Server struct {
	http.Server
	templates *template.Template

	backend   platform.Backend
	sessions  *session.Manager
	store     AuditReader
	publisher StatusPublisher
	exporter  ReportExporter

	theme  string
	layout string

	logs *applog.StructuredLogger

	rateLimiter *rateLimiter

	// Short-lived caches in front of the platform API
	balancesCache *cache.LRUCache[[]core.UserBalance]
	balanceCache  *cache.LRUCache[core.UserBalance]
	usersCache    *cache.LRUCache[platform.UsersPage]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: applog.Middleware(logger)(mux),
		},
		backend:   opts.Backend,
		sessions:  opts.Sessions,
		store:     opts.Store,
		publisher: opts.Publisher,
		exporter:  opts.Exporter,
		theme:     opts.Theme,
		layout:    opts.Layout,

		logs: applog.NewStructuredLogger(logger),

		rateLimiter: newRateLimiter(),

		balancesCache: cache.NewLRUCache[[]core.UserBalance](4, cacheTTL),
		balanceCache:  cache.NewLRUCache[core.UserBalance](200, cacheTTL),
		usersCache:    cache.NewLRUCache[platform.UsersPage](8, cacheTTL),
		cacheManager:  cache.NewManager(),
	}

	s.cacheManager.Register(s.balancesCache)
	s.cacheManager.Register(s.balanceCache)
	s.cacheManager.Register(s.usersCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /login", s.withSecurityHeaders(s.handleLoginPage))
	mux.HandleFunc("POST /login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("POST /login/forget", s.withSecurityHeaders(s.handleForgetAccount))
	mux.HandleFunc("POST /logout", s.withSecurityHeaders(s.handleLogout))

	mux.HandleFunc("GET /{$}", s.withSecurityHeaders(s.requireSession(s.handleRoot)))
	mux.HandleFunc("GET /dashboard", s.withSecurityHeaders(s.requireSession(s.handleDashboard)))
	mux.HandleFunc("GET /users", s.withSecurityHeaders(s.requireSession(s.handleUsers)))
	mux.HandleFunc("GET /users/{id}/balance", s.withSecurityHeaders(s.requireSession(s.handleUserBalance)))
	mux.HandleFunc("GET /users/{id}/balance.csv", s.withSecurityHeaders(s.requireSession(s.handleUserBalanceCSV)))
	mux.HandleFunc("POST /users/{id}/export", s.withSecurityHeaders(s.requireSession(s.handleExport)))
	mux.HandleFunc("GET /users/{id}/tools", s.withSecurityHeaders(s.requireSession(s.handleUserTools)))
	mux.HandleFunc("GET /users/{id}/vacancies", s.withSecurityHeaders(s.requireSession(s.handleUserVacancies)))
	mux.HandleFunc("GET /tools", s.withSecurityHeaders(s.requireSession(s.handleTools)))
	mux.HandleFunc("POST /tools/status", s.withSecurityHeaders(s.requireSession(s.handleToolStatus)))
	mux.HandleFunc("GET /promotions", s.withSecurityHeaders(s.requireSession(s.handlePromotions)))
	mux.HandleFunc("GET /audit", s.withSecurityHeaders(s.requireSession(s.handleAudit)))
	mux.HandleFunc("GET /charts/usage.png", s.withSecurityHeaders(s.requireSession(s.handleUsageChart)))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// sessionContextKey carries the resolved session through a request.
type sessionContextKey struct{}

// requireSession redirects to the login page when the request has no valid
// session, and otherwise stores the session in the request context.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.FromRequest(r)
		if err != nil {
			s.sessions.ClearCookie(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
		next(w, r.WithContext(ctx))
	}
}

func sessionFrom(ctx context.Context) storage.Session {
	if sess, ok := ctx.Value(sessionContextKey{}).(storage.Session); ok {
		return sess
	}
	return storage.Session{}
}

const backendTimeout = 7 * time.Second

// getAllBalances returns every user balance, cached for a short window so the
// dashboard and chart pages do not hammer the bulk endpoint.
func (s *Server) getAllBalances(ctx context.Context) ([]core.UserBalance, error) {
	const key = "all"
	if data, found := s.balancesCache.Get(key); found {
		slog.DebugContext(ctx, "Balances cache hit", "count", len(data))
		return data, nil
	}

	cctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()
	data, err := s.backend.AllBalances(cctx)
	if err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}

	s.balancesCache.Set(key, data)
	return data, nil
}

func (s *Server) getUserBalance(ctx context.Context, userID string) (core.UserBalance, error) {
	if data, found := s.balanceCache.Get(userID); found {
		return data, nil
	}

	cctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()
	data, err := s.backend.UserBalance(cctx, userID)
	if err != nil {
		return core.UserBalance{}, fmt.Errorf("load balance for %s: %w", userID, err)
	}

	s.balanceCache.Set(userID, data)
	return data, nil
}

func (s *Server) getUsers(ctx context.Context, filter platform.UserFilter) (platform.UsersPage, error) {
	key := fmt.Sprintf("e=%t;b=%t", filter.Explorers, filter.Businesses)
	if data, found := s.usersCache.Get(key); found {
		return data, nil
	}

	cctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()
	data, err := s.backend.ListUsers(cctx, filter)
	if err != nil {
		return platform.UsersPage{}, fmt.Errorf("load users: %w", err)
	}

	s.usersCache.Set(key, data)
	return data, nil
}
