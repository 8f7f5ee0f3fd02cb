package core

import (
	"encoding/json"
	"strings"
)

// Moderation statuses recognized for submitted tools.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// ValidToolStatus reports whether s is a recognized moderation status.
func ValidToolStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type (
	// UserRecord is one platform account, explorer or business. Field
	// presence varies by account type; absent fields stay empty.
	UserRecord struct {
		Type             string `json:"type"`
		UserID           string `json:"user_id"`
		RegistrationDate string `json:"registration_date"`
		Username         string `json:"username"`
		FirstName        string `json:"first_name,omitempty"`
		LastName         string `json:"last_name,omitempty"`
		Gender           string `json:"gender,omitempty"`
		Birthdate        string `json:"birthdate,omitempty"`
		JobTitle         string `json:"job_title,omitempty"`
		BusinessName     string `json:"business_name,omitempty"`
		Location         string `json:"location,omitempty"`
		PhoneNumber      string `json:"phone_number,omitempty"`
		Status           string `json:"status,omitempty"`
		Slogan           string `json:"slogan,omitempty"`
		Email            string `json:"email,omitempty"`
		Website          string `json:"website,omitempty"`
		ProfilePicture   string `json:"profile_picture,omitempty"`
	}

	// PendingTool is a business-submitted listing in the moderation queue.
	// Likes and comments arrive in backend-specific shapes; only their
	// counts matter here.
	PendingTool struct {
		ID           string            `json:"id"`
		UserID       string            `json:"user_id"`
		ToolName     string            `json:"tool_name"`
		ToolImage    string            `json:"tool_image"`
		ToolURL      string            `json:"tool_url,omitempty"`
		ToolCategory string            `json:"tool_category,omitempty"`
		ToolIndustry string            `json:"tool_industry,omitempty"`
		Status       string            `json:"status"`
		Views        int               `json:"views,omitempty"`
		Likes        []json.RawMessage `json:"likes,omitempty"`
		Comments     []json.RawMessage `json:"comments,omitempty"`
	}

	// ToolWithAd is a promoted tool placement.
	ToolWithAd struct {
		ID        string `json:"id"`
		ToolName  string `json:"tool_name"`
		ToolImage string `json:"tool_image"`
		ToolURL   string `json:"tool_url,omitempty"`
		Tier      string `json:"tier,omitempty"`
		StartDate string `json:"start_date,omitempty"`
		EndDate   string `json:"end_date,omitempty"`
	}

	// Vacancy is a job posting created by a business account.
	Vacancy struct {
		ID                 string            `json:"id"`
		VacancyTitle       string            `json:"vacancy_title"`
		VacancyDescription string            `json:"vacancy_description"`
		VacancySalary      json.Number       `json:"vacancy_salary,omitempty"`
		SalaryCurrency     string            `json:"salary_currency,omitempty"`
		Industry           string            `json:"industry,omitempty"`
		Location           string            `json:"location,omitempty"`
		IsHidden           bool              `json:"is_hidden,omitempty"`
		AppliedUsers       []json.RawMessage `json:"applied_users,omitempty"`
	}
)

// DisplayName picks the best available label for a user.
func (u UserRecord) DisplayName() string {
	switch {
	case u.BusinessName != "":
		return u.BusinessName
	case u.Username != "":
		return u.Username
	case u.FirstName != "" || u.LastName != "":
		return strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	return "User"
}

// MatchesQuery reports whether any user field contains q (case-insensitive).
// An empty query matches everything.
func (u UserRecord) MatchesQuery(q string) bool {
	return matchAny(q,
		u.UserID, u.Username, u.FirstName, u.LastName, u.BusinessName,
		u.JobTitle, u.Location, u.PhoneNumber, u.Status, u.Slogan,
		u.Email, u.Website, u.Gender, u.Birthdate, u.RegistrationDate)
}

// MatchesQuery reports whether any tool field contains q (case-insensitive).
func (t PendingTool) MatchesQuery(q string) bool {
	return matchAny(q,
		t.ID, t.UserID, t.ToolName, t.ToolURL, t.ToolCategory,
		t.ToolIndustry, t.Status)
}

// MatchesQuery matches the vacancy title only, mirroring the vacancy page's
// search behavior.
func (v Vacancy) MatchesQuery(q string) bool {
	return matchAny(q, v.VacancyTitle)
}

// LikeCount returns the number of likes regardless of element shape.
func (t PendingTool) LikeCount() int { return len(t.Likes) }

// CommentCount returns the number of comments regardless of element shape.
func (t PendingTool) CommentCount() int { return len(t.Comments) }

// ApplicantCount returns how many users applied to the vacancy.
func (v Vacancy) ApplicantCount() int { return len(v.AppliedUsers) }

func matchAny(q string, fields ...string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
