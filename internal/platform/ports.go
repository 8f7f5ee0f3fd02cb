package platform

import (
	"context"

	"a9admin/internal/core"
)

type (
	// UsersPage is the envelope returned by the all-users endpoint.
	UsersPage struct {
		Success bool              `json:"success"`
		Total   int               `json:"total"`
		Data    []core.UserRecord `json:"data"`
	}

	// ToolsPage is one page of the moderation queue.
	ToolsPage struct {
		Success bool               `json:"success"`
		Page    int                `json:"page"`
		Limit   int                `json:"limit"`
		Total   int                `json:"total"`
		Data    []core.PendingTool `json:"data"`
	}

	// UserFilter narrows the all-users listing by account type. Both flags
	// false means no filtering.
	UserFilter struct {
		Explorers  bool
		Businesses bool
	}

	// AdminUser identifies the logged-in administrator.
	AdminUser struct {
		ID             string `json:"id"`
		Email          string `json:"email"`
		Name           string `json:"name"`
		ProfilePicture string `json:"profile_picture,omitempty"`
	}

	// LoginResult carries the backend-issued token pair.
	LoginResult struct {
		AccessToken  string    `json:"access_token"`
		RefreshToken string    `json:"refresh_token"`
		User         AdminUser `json:"user"`
	}
)

// Ports for the remote platform backend.
type (
	BalanceReader interface {
		// UserBalance returns one user's balance and transaction history.
		UserBalance(ctx context.Context, userID string) (core.UserBalance, error)
		// AllBalances returns every user's balance and history in one call.
		AllBalances(ctx context.Context) ([]core.UserBalance, error)
	}

	UserLister interface {
		ListUsers(ctx context.Context, filter UserFilter) (UsersPage, error)
	}

	ToolReader interface {
		PendingTools(ctx context.Context, page, limit int) (ToolsPage, error)
		ToolsWithAds(ctx context.Context) ([]core.ToolWithAd, error)
		UserTools(ctx context.Context, userID string) ([]core.PendingTool, error)
	}

	ToolModerator interface {
		UpdateToolStatus(ctx context.Context, toolID, newStatus string) error
	}

	VacancyLister interface {
		UserVacancies(ctx context.Context, userID string) ([]core.Vacancy, error)
	}

	Authenticator interface {
		Login(ctx context.Context, email, password string) (LoginResult, error)
	}
)

// Backend bundles every port the dashboard needs.
type Backend interface {
	BalanceReader
	UserLister
	ToolReader
	ToolModerator
	VacancyLister
	Authenticator
}
