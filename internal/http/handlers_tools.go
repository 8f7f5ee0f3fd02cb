package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"a9admin/internal/core"
	"a9admin/internal/storage"
)

const defaultToolsPageSize = 20

// toolsData feeds the moderation queue page.
type toolsData struct {
	page
	Tools    []core.PendingTool
	Page     int
	Limit    int
	Total    int
	HasPrev  bool
	HasNext  bool
	PrevPage int
	NextPage int
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	pageNum := parsePositiveInt(r, "page", 1)
	limit := parsePositiveInt(r, "limit", defaultToolsPageSize)
	q := sanitizeInput(r.URL.Query().Get("q"))

	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()
	result, err := s.backend.PendingTools(ctx, pageNum, limit)
	if err != nil {
		s.renderError(w, r, http.StatusBadGateway, fmt.Errorf("load moderation queue: %w", err))
		return
	}

	tools := result.Data
	if q != "" {
		filtered := make([]core.PendingTool, 0, len(tools))
		for _, t := range tools {
			if t.MatchesQuery(q) {
				filtered = append(filtered, t)
			}
		}
		tools = filtered
	}

	data := toolsData{
		page:     s.newPage("Moderation queue", sess),
		Tools:    tools,
		Page:     pageNum,
		Limit:    limit,
		Total:    result.Total,
		HasPrev:  pageNum > 1,
		HasNext:  pageNum*limit < result.Total,
		PrevPage: pageNum - 1,
		NextPage: pageNum + 1,
	}
	data.Query = q
	s.render(w, r, "tools.html", data)
}

func (s *Server) handleToolStatus(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	toolID := sanitizeInput(r.PostFormValue("tool_id"))
	oldStatus := sanitizeInput(r.PostFormValue("old_status"))
	newStatus := sanitizeInput(r.PostFormValue("new_status"))
	returnPage := r.PostFormValue("page")

	if toolID == "" {
		s.renderError(w, r, http.StatusBadRequest, fmt.Errorf("tool id is required"))
		return
	}
	if !core.ValidToolStatus(newStatus) {
		s.renderError(w, r, http.StatusBadRequest, fmt.Errorf("unknown tool status %q", newStatus))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()
	if err := s.backend.UpdateToolStatus(ctx, toolID, newStatus); err != nil {
		s.renderError(w, r, http.StatusBadGateway, fmt.Errorf("update tool status: %w", err))
		return
	}

	s.logs.LogToolModerated(r.Context(), toolID, newStatus, sess.Email)

	s.recordModeration(r.Context(), toolID, oldStatus, newStatus, sess.Email)

	target := "/tools"
	if n, err := strconv.Atoi(returnPage); err == nil && n > 1 {
		target = fmt.Sprintf("/tools?page=%d", n)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// recordModeration hands the decision to the audit queue, falling back to a
// direct database write when no publisher is wired.
func (s *Server) recordModeration(ctx context.Context, toolID, oldStatus, newStatus, actor string) {
	if s.publisher != nil {
		err := s.publisher.PublishToolStatus(ctx, toolID, oldStatus, newStatus, actor)
		if err == nil {
			return
		}
		slog.WarnContext(ctx, "Failed to publish moderation decision, writing audit entry directly",
			"tool_id", toolID, "error", err)
	}

	entry := storage.AuditEntry{
		ToolID:     toolID,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.store.InsertAuditEntry(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "Failed to record moderation decision", "tool_id", toolID, "error", err)
	}
}

// promotionsData feeds the promoted tools page.
type promotionsData struct {
	page
	Tools []core.ToolWithAd
}

func (s *Server) handlePromotions(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()
	tools, err := s.backend.ToolsWithAds(ctx)
	if err != nil {
		s.renderError(w, r, http.StatusBadGateway, fmt.Errorf("load promoted tools: %w", err))
		return
	}

	data := promotionsData{page: s.newPage("Promoted tools", sess), Tools: tools}
	s.render(w, r, "promotions.html", data)
}

// userToolsData feeds a single business's tools page.
type userToolsData struct {
	page
	UserID string
	Tools  []core.PendingTool
}

func (s *Server) handleUserTools(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	userID := r.PathValue("id")
	q := sanitizeInput(r.URL.Query().Get("q"))

	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()
	tools, err := s.backend.UserTools(ctx, userID)
	if err != nil {
		s.renderError(w, r, http.StatusBadGateway, fmt.Errorf("load tools for %s: %w", userID, err))
		return
	}

	if q != "" {
		filtered := make([]core.PendingTool, 0, len(tools))
		for _, t := range tools {
			if t.MatchesQuery(q) {
				filtered = append(filtered, t)
			}
		}
		tools = filtered
	}

	data := userToolsData{page: s.newPage("Tools of "+userID, sess), UserID: userID, Tools: tools}
	data.Query = q
	s.render(w, r, "user_tools.html", data)
}

// vacanciesData feeds a single business's vacancies page.
type vacanciesData struct {
	page
	UserID    string
	Vacancies []core.Vacancy
}

func (s *Server) handleUserVacancies(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	userID := r.PathValue("id")
	q := sanitizeInput(r.URL.Query().Get("q"))

	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()
	vacancies, err := s.backend.UserVacancies(ctx, userID)
	if err != nil {
		s.renderError(w, r, http.StatusBadGateway, fmt.Errorf("load vacancies for %s: %w", userID, err))
		return
	}

	if q != "" {
		filtered := make([]core.Vacancy, 0, len(vacancies))
		for _, v := range vacancies {
			if v.MatchesQuery(q) {
				filtered = append(filtered, v)
			}
		}
		vacancies = filtered
	}

	data := vacanciesData{page: s.newPage("Vacancies of "+userID, sess), UserID: userID, Vacancies: vacancies}
	data.Query = q
	s.render(w, r, "vacancies.html", data)
}

// auditData feeds the moderation audit trail page.
type auditData struct {
	page
	Entries []storage.AuditEntry
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	entries, err := s.store.ListAuditEntries(r.Context(), 100)
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, fmt.Errorf("load audit trail: %w", err))
		return
	}

	data := auditData{page: s.newPage("Audit trail", sess), Entries: entries}
	s.render(w, r, "audit.html", data)
}
