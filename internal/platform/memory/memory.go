// Package memory provides an in-memory platform backend used for local
// development and handler tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"a9admin/internal/core"
	"a9admin/internal/platform"
)

type Store struct {
	mu        sync.Mutex
	users     []core.UserRecord
	balances  []core.UserBalance
	tools     []core.PendingTool
	promoted  []core.ToolWithAd
	vacancies map[string][]core.Vacancy
}

// Ensure interface conformance
var _ platform.Backend = (*Store)(nil)

func New() *Store {
	return &Store{vacancies: make(map[string][]core.Vacancy)}
}

// NewSeeded returns a store with a small data set covering both account
// types, top-ups, usage, and a moderation queue.
func NewSeeded() *Store {
	s := New()
	s.users = []core.UserRecord{
		{
			Type: "explorer", UserID: "exp-1", Username: "ada",
			FirstName: "Ada", LastName: "Moreno", Email: "ada@example.com",
			RegistrationDate: "2024-11-02", Location: "Lisbon", Status: "active",
		},
		{
			Type: "business", UserID: "biz-1", Username: "nimbus",
			BusinessName: "Nimbus Labs", Email: "ops@nimbus.example",
			RegistrationDate: "2024-09-17", Location: "Berlin",
		},
	}
	s.balances = []core.UserBalance{
		{
			UserID: "exp-1", TotalBalance: 64.50,
			History: []core.HistoryItem{
				{Date: "2025-01-10", Transactions: []core.Transaction{
					{Description: "Credit purchase", Amount: "100.00", CreatedAt: "2025-01-10T09:00:00Z", EngineUsed: "N/A"},
					{Description: "Prompt run", Amount: "-25.50", CreatedAt: "2025-01-10T11:30:00Z", EngineUsed: "GPT"},
				}},
				{Date: "2025-01-11", Transactions: []core.Transaction{
					{Description: "Image batch", Amount: "-10.00", CreatedAt: "2025-01-11T08:15:00Z", EngineUsed: ""},
				}},
			},
		},
		{
			UserID: "biz-1", TotalBalance: 12.00,
			History: []core.HistoryItem{
				{Date: "2025-01-12", Transactions: []core.Transaction{
					{Description: "Starter pack", Amount: "20.00", CreatedAt: "2025-01-12T10:00:00Z", EngineUsed: "N/A"},
					{Description: "Listing boost", Amount: "-8.00", CreatedAt: "2025-01-12T16:45:00Z", EngineUsed: "DALL-E"},
				}},
			},
		},
	}
	s.tools = []core.PendingTool{
		{ID: "tool-1", UserID: "biz-1", ToolName: "Lead Finder", Status: core.StatusPending, ToolCategory: "sales"},
		{ID: "tool-2", UserID: "biz-1", ToolName: "Copy Studio", Status: core.StatusApproved, ToolCategory: "marketing"},
	}
	s.promoted = []core.ToolWithAd{
		{ID: "tool-2", ToolName: "Copy Studio", Tier: "gold", StartDate: "2025-01-01", EndDate: "2025-02-01"},
	}
	s.vacancies["biz-1"] = []core.Vacancy{
		{ID: "vac-1", VacancyTitle: "Prompt Engineer", VacancyDescription: "Build and tune prompts.", Location: "Remote", SalaryCurrency: "EUR"},
	}
	return s
}

// SetBalances replaces the balance fixtures.
func (s *Store) SetBalances(balances []core.UserBalance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances = balances
}

// SetTools replaces the moderation queue fixtures.
func (s *Store) SetTools(tools []core.PendingTool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = tools
}

func (s *Store) UserBalance(_ context.Context, userID string) (core.UserBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.balances {
		if b.UserID == userID {
			return b, nil
		}
	}
	return core.UserBalance{}, fmt.Errorf("no balance for user %s", userID)
}

func (s *Store) AllBalances(_ context.Context) ([]core.UserBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.UserBalance, len(s.balances))
	copy(out, s.balances)
	return out, nil
}

func (s *Store) ListUsers(_ context.Context, filter platform.UserFilter) (platform.UsersPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var data []core.UserRecord
	for _, u := range s.users {
		switch {
		case filter.Explorers && !filter.Businesses && u.Type != "explorer":
		case filter.Businesses && !filter.Explorers && u.Type != "business":
		default:
			data = append(data, u)
		}
	}
	return platform.UsersPage{Success: true, Total: len(data), Data: data}, nil
}

func (s *Store) PendingTools(_ context.Context, page, limit int) (platform.ToolsPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	start := (page - 1) * limit
	end := start + limit
	if start > len(s.tools) {
		start = len(s.tools)
	}
	if end > len(s.tools) {
		end = len(s.tools)
	}
	data := make([]core.PendingTool, end-start)
	copy(data, s.tools[start:end])
	return platform.ToolsPage{
		Success: true,
		Page:    page,
		Limit:   limit,
		Total:   len(s.tools),
		Data:    data,
	}, nil
}

func (s *Store) ToolsWithAds(_ context.Context) ([]core.ToolWithAd, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.ToolWithAd, len(s.promoted))
	copy(out, s.promoted)
	return out, nil
}

func (s *Store) UserTools(_ context.Context, userID string) ([]core.PendingTool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.PendingTool
	for _, t := range s.tools {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) UpdateToolStatus(_ context.Context, toolID, newStatus string) error {
	if !core.ValidToolStatus(newStatus) {
		return fmt.Errorf("invalid status %q", newStatus)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tools {
		if s.tools[i].ID == toolID {
			s.tools[i].Status = newStatus
			return nil
		}
	}
	return fmt.Errorf("no tool %s", toolID)
}

func (s *Store) UserVacancies(_ context.Context, userID string) ([]core.Vacancy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Vacancy, len(s.vacancies[userID]))
	copy(out, s.vacancies[userID])
	return out, nil
}

// Login accepts any non-empty credentials and issues fixed tokens. Good
// enough for local development; the rest client talks to the real backend.
func (s *Store) Login(_ context.Context, email, password string) (platform.LoginResult, error) {
	if email == "" || password == "" {
		return platform.LoginResult{}, fmt.Errorf("missing credentials")
	}
	return platform.LoginResult{
		AccessToken:  "memory-access-token",
		RefreshToken: "memory-refresh-token",
		User:         platform.AdminUser{ID: "admin-1", Email: email, Name: "Local Admin"},
	}, nil
}
