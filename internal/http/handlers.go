package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"a9admin/internal/charts"
	"a9admin/internal/core"
	"a9admin/internal/platform"
	"a9admin/internal/storage"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// loginData feeds the login page, including the saved-account picker.
type loginData struct {
	page
	Accounts []storage.SavedAccount
	Email    string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	// Already logged in? Go straight to the dashboard.
	if _, err := s.sessions.FromRequest(r); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := loginData{page: page{Title: "Sign in", Theme: s.theme, Layout: s.layout}}
	accounts, err := s.store.ListSavedAccounts(r.Context())
	if err != nil {
		slog.WarnContext(r.Context(), "Failed to load saved accounts", "error", err)
	} else {
		data.Accounts = accounts
	}
	s.render(w, r, "login.html", data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := sanitizeInput(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	data := loginData{page: page{Title: "Sign in", Theme: s.theme, Layout: s.layout}, Email: email}
	if email == "" || password == "" {
		data.Error = "Email and password are required"
		w.WriteHeader(http.StatusBadRequest)
		s.render(w, r, "login.html", data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()
	login, err := s.backend.Login(ctx, email, password)
	if err != nil {
		slog.WarnContext(r.Context(), "Login failed", "email", email, "error", err)
		if accounts, aErr := s.store.ListSavedAccounts(r.Context()); aErr == nil {
			data.Accounts = accounts
		}
		data.Error = "Invalid credentials"
		w.WriteHeader(http.StatusUnauthorized)
		s.render(w, r, "login.html", data)
		return
	}

	sess, err := s.sessions.Start(r.Context(), login)
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, err)
		return
	}

	slog.InfoContext(r.Context(), "Admin logged in", "email", sess.Email)
	s.sessions.SetCookie(w, sess)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleForgetAccount(w http.ResponseWriter, r *http.Request) {
	email := sanitizeInput(r.PostFormValue("email"))
	if email != "" {
		if err := s.store.DeleteSavedAccount(r.Context(), email); err != nil {
			slog.WarnContext(r.Context(), "Failed to forget account", "email", email, "error", err)
		}
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.End(r); err != nil {
		slog.WarnContext(r.Context(), "Failed to delete session", "error", err)
	}
	s.sessions.ClearCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// dashboardData feeds the platform overview page.
type dashboardData struct {
	page
	Summary      core.PlatformSummary
	Balances     []core.UserBalance
	PendingTools int

	// SelectedUser expands one user's transaction groups inline.
	SelectedUser   string
	SelectedGroups []core.EngineGroup
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	selected := r.URL.Query().Get("user")

	var (
		balances []core.UserBalance
		pending  int
	)

	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		data, err := s.getAllBalances(gctx)
		balances = data
		return err
	})
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, backendTimeout)
		defer cancel()
		tp, err := s.backend.PendingTools(cctx, 1, 1)
		if err != nil {
			return fmt.Errorf("load moderation queue: %w", err)
		}
		pending = tp.Total
		return nil
	})
	if err := g.Wait(); err != nil {
		s.renderError(w, r, http.StatusBadGateway, err)
		return
	}

	data := dashboardData{
		page:         s.newPage("Dashboard", sess),
		Summary:      core.AggregatePlatform(balances),
		Balances:     balances,
		PendingTools: pending,
	}
	if selected != "" {
		for _, b := range balances {
			if b.UserID == selected {
				data.SelectedUser = selected
				data.SelectedGroups = core.GroupByEngine(core.Flatten(b.History))
				break
			}
		}
	}
	s.render(w, r, "dashboard.html", data)
}

// usersData feeds the user listing page.
type usersData struct {
	page
	Type  string
	Users []core.UserRecord
	Total int
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	userType := r.URL.Query().Get("type")
	q := sanitizeInput(r.URL.Query().Get("q"))

	filter := platform.UserFilter{Explorers: true, Businesses: true}
	switch userType {
	case "explorer":
		filter.Businesses = false
	case "business":
		filter.Explorers = false
	default:
		userType = "all"
	}

	pageResult, err := s.getUsers(r.Context(), filter)
	if err != nil {
		s.renderError(w, r, http.StatusBadGateway, err)
		return
	}

	users := pageResult.Data
	if q != "" {
		filtered := make([]core.UserRecord, 0, len(users))
		for _, u := range users {
			if u.MatchesQuery(q) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}

	data := usersData{
		page:  s.newPage("Users", sess),
		Type:  userType,
		Users: users,
		Total: pageResult.Total,
	}
	data.Query = q
	s.render(w, r, "users.html", data)
}

// balanceData feeds the per-user balance page.
type balanceData struct {
	page
	UserID        string
	Balance       string
	TotalTopUp    string
	TotalUsage    string
	Groups        []core.EngineGroup
	HasUsage      bool
	ExportEnabled bool
	ExportedTo    string
}

func (s *Server) handleUserBalance(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	userID := r.PathValue("id")

	balance, err := s.getUserBalance(r.Context(), userID)
	if err != nil {
		s.renderError(w, r, http.StatusBadGateway, err)
		return
	}

	txs := core.Flatten(balance.History)
	summary := core.Aggregate(txs)

	data := balanceData{
		page:          s.newPage("Balance "+userID, sess),
		UserID:        userID,
		Balance:       formatTokens(balance.TotalBalance),
		TotalTopUp:    formatTokens(summary.TotalTopUp),
		TotalUsage:    formatTokens(summary.TotalUsage),
		Groups:        core.GroupByEngine(txs),
		HasUsage:      len(summary.Chart) > 0,
		ExportEnabled: s.exporter != nil,
		ExportedTo:    r.URL.Query().Get("exported"),
	}
	s.render(w, r, "balance.html", data)
}

func (s *Server) handleUserBalanceCSV(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	balance, err := s.getUserBalance(r.Context(), userID)
	if err != nil {
		s.renderError(w, r, http.StatusBadGateway, err)
		return
	}

	groups := core.GroupByEngine(core.Flatten(balance.History))

	var buf bytes.Buffer
	if err := core.WriteTransactionsCSV(&buf, groups); err != nil {
		s.renderError(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", core.CSVFileName(userID)))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if s.exporter == nil {
		s.renderError(w, r, http.StatusNotFound, fmt.Errorf("spreadsheet export is not configured"))
		return
	}

	balance, err := s.getUserBalance(r.Context(), userID)
	if err != nil {
		s.renderError(w, r, http.StatusBadGateway, err)
		return
	}
	groups := core.GroupByEngine(core.Flatten(balance.History))

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	ref, err := s.exporter.ExportTransactions(ctx, userID, groups)
	if err != nil {
		s.renderError(w, r, http.StatusBadGateway, fmt.Errorf("export transactions: %w", err))
		return
	}

	slog.InfoContext(r.Context(), "Transactions exported", "user_id", userID, "range", ref)
	http.Redirect(w, r, "/users/"+url.PathEscape(userID)+"/balance?exported="+url.QueryEscape(ref), http.StatusSeeOther)
}

func (s *Server) handleUsageChart(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")

	var (
		points []core.ChartPoint
		title  string
	)
	if userID != "" {
		balance, err := s.getUserBalance(r.Context(), userID)
		if err != nil {
			s.renderError(w, r, http.StatusBadGateway, err)
			return
		}
		points = core.Aggregate(core.Flatten(balance.History)).Chart
		title = "Token usage by engine"
	} else {
		balances, err := s.getAllBalances(r.Context())
		if err != nil {
			s.renderError(w, r, http.StatusBadGateway, err)
			return
		}
		points = core.AggregatePlatform(balances).Chart
		title = "Platform token usage by engine"
	}

	png, err := charts.UsagePie(title, points)
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, fmt.Errorf("render chart: %w", err))
		return
	}
	if png == nil {
		http.Error(w, "No usage data", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}
