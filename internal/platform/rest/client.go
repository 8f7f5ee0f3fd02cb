// Package rest implements the platform ports against the remote A9 backend
// HTTP API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"a9admin/internal/core"
	"a9admin/internal/platform"
)

// Client talks to the A9 platform backend. One HTTP request per operation;
// no retries, no deduplication. Failures come back as a single wrapped
// error carrying the HTTP status, which the pages render as-is.
type Client struct {
	baseURL string
	http    *http.Client
}

// Ensure interface conformance
var _ platform.Backend = (*Client)(nil)

// New creates a client for the given base URL (scheme://host, no trailing
// slash required).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPClientWithPooling(),
	}
}

// NewFromEnv creates a client from PLATFORM_API_URL.
func NewFromEnv() (*Client, error) {
	base := strings.TrimSpace(os.Getenv("PLATFORM_API_URL"))
	if base == "" {
		return nil, errors.New("missing PLATFORM_API_URL")
	}
	return New(base), nil
}

// newHTTPClientWithPooling creates an HTTP client with connection pooling
// and conservative timeouts for the backend API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DisableKeepAlives: false,
		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// UserBalance implements platform.BalanceReader.
func (c *Client) UserBalance(ctx context.Context, userID string) (core.UserBalance, error) {
	var out core.UserBalance
	if err := c.getJSON(ctx, "/api/admin-balance/balance/"+url.PathEscape(userID), &out); err != nil {
		return core.UserBalance{}, fmt.Errorf("fetch user balance: %w", err)
	}
	return out, nil
}

// AllBalances implements platform.BalanceReader. The dashboard uses this
// single bulk endpoint instead of fanning out per-user requests.
func (c *Client) AllBalances(ctx context.Context) ([]core.UserBalance, error) {
	var out []core.UserBalance
	if err := c.getJSON(ctx, "/api/admin-balance/balances", &out); err != nil {
		return nil, fmt.Errorf("fetch user balances: %w", err)
	}
	return out, nil
}

// ListUsers implements platform.UserLister.
func (c *Client) ListUsers(ctx context.Context, filter platform.UserFilter) (platform.UsersPage, error) {
	q := url.Values{}
	if filter.Explorers {
		q.Set("explorers", "true")
	}
	if filter.Businesses {
		q.Set("businesses", "true")
	}
	path := "/api/pending-tools/all-users"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out platform.UsersPage
	if err := c.getJSON(ctx, path, &out); err != nil {
		return platform.UsersPage{}, fmt.Errorf("fetch users: %w", err)
	}
	return out, nil
}

// PendingTools implements platform.ToolReader.
func (c *Client) PendingTools(ctx context.Context, page, limit int) (platform.ToolsPage, error) {
	q := url.Values{
		"page":  []string{strconv.Itoa(page)},
		"limit": []string{strconv.Itoa(limit)},
	}
	var out platform.ToolsPage
	if err := c.getJSON(ctx, "/api/pending-tools?"+q.Encode(), &out); err != nil {
		return platform.ToolsPage{}, fmt.Errorf("fetch pending tools: %w", err)
	}
	return out, nil
}

// ToolsWithAds implements platform.ToolReader.
func (c *Client) ToolsWithAds(ctx context.Context) ([]core.ToolWithAd, error) {
	var out []core.ToolWithAd
	if err := c.getJSON(ctx, "/api/pending-tools/with-ads", &out); err != nil {
		return nil, fmt.Errorf("fetch tools with ads: %w", err)
	}
	return out, nil
}

// UserTools implements platform.ToolReader.
func (c *Client) UserTools(ctx context.Context, userID string) ([]core.PendingTool, error) {
	var out struct {
		Data []core.PendingTool `json:"data"`
	}
	if err := c.getJSON(ctx, "/api/pending-tools/user-tools/"+url.PathEscape(userID), &out); err != nil {
		return nil, fmt.Errorf("fetch user tools: %w", err)
	}
	return out.Data, nil
}

// UpdateToolStatus implements platform.ToolModerator.
func (c *Client) UpdateToolStatus(ctx context.Context, toolID, newStatus string) error {
	body := struct {
		ToolID    string `json:"toolId"`
		NewStatus string `json:"newStatus"`
	}{ToolID: toolID, NewStatus: newStatus}
	if err := c.postJSON(ctx, "/api/pending-tools/status", body, nil); err != nil {
		return fmt.Errorf("update tool status: %w", err)
	}
	return nil
}

// UserVacancies implements platform.VacancyLister.
func (c *Client) UserVacancies(ctx context.Context, userID string) ([]core.Vacancy, error) {
	var out []core.Vacancy
	if err := c.getJSON(ctx, "/api/admin-balance/vacancies/"+url.PathEscape(userID), &out); err != nil {
		return nil, fmt.Errorf("fetch user vacancies: %w", err)
	}
	return out, nil
}

// Login implements platform.Authenticator.
func (c *Client) Login(ctx context.Context, email, password string) (platform.LoginResult, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}
	var out platform.LoginResult
	if err := c.postJSON(ctx, "/api/auth/login", body, &out); err != nil {
		return platform.LoginResult{}, fmt.Errorf("login: %w", err)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
