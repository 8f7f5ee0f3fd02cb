package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	applog "a9admin/internal/log"
	"a9admin/internal/storage"
)

// page carries the fields every template needs.
type page struct {
	Title     string
	Theme     string
	Layout    string
	AdminName string
	Query     string
	Error     string
}

func (s *Server) newPage(title string, sess storage.Session) page {
	name := sess.Name
	if name == "" {
		name = sess.Email
	}
	return page{
		Title:     title,
		Theme:     s.theme,
		Layout:    s.layout,
		AdminName: name,
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "Error: templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		http.Error(w, "Error: page rendering failed", http.StatusInternalServerError)
	}
}

// renderError shows the flat error page used everywhere a backend call fails.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, err error) {
	fields := applog.NewFields().WithHTTPResponse(status, 0, false)
	s.logs.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, applog.OpRender, fields)

	if s.templates == nil {
		http.Error(w, fmt.Sprintf("Error: %v", err), status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	data := struct {
		page
		Message string
	}{page: page{Title: "Error", Theme: s.theme, Layout: s.layout}, Message: err.Error()}
	if tErr := s.templates.ExecuteTemplate(w, "error.html", data); tErr != nil {
		_, _ = fmt.Fprintf(w, "Error: %v", err)
	}
}

// parsePositiveInt reads a positive integer query parameter, falling back to
// def when absent or malformed.
func parsePositiveInt(r *http.Request, name string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// formatTokens renders a token amount with two decimals for display.
func formatTokens(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
