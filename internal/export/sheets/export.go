// Package sheets exports transaction reports to a Google spreadsheet so
// finance can work with them outside the dashboard.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"a9admin/internal/core"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportSheet   string
}

// Enabled reports whether export is configured at all. Export is optional;
// without GOOGLE_SPREADSHEET_ID the dashboard simply hides the button.
func Enabled() bool {
	return strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")) != ""
}

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials in
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_REPORT_SHEET_NAME (default "Transactions").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	reportSheet := strings.TrimSpace(os.Getenv("GOOGLE_REPORT_SHEET_NAME"))
	if reportSheet == "" {
		reportSheet = "Transactions"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportSheet:   reportSheet,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// Verify checks that the configured credentials can reach the spreadsheet and
// that the report sheet exists. Returns the spreadsheet title.
func (c *Client) Verify(ctx context.Context) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get spreadsheet %s: %w", c.spreadsheetID, err)
	}

	for _, sheet := range ss.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == c.reportSheet {
			return ss.Properties.Title, nil
		}
	}
	return "", fmt.Errorf("spreadsheet %q has no sheet named %q", ss.Properties.Title, c.reportSheet)
}

// ExportTransactions appends one user's grouped transaction report to the
// report sheet and returns the updated range. Rows mirror the CSV download:
// Date, Description, Engine, Amount, prefixed with an export header row.
func (c *Client) ExportTransactions(ctx context.Context, userID string, groups []core.EngineGroup) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rows := [][]any{
		{fmt.Sprintf("Export for %s at %s", userID, time.Now().UTC().Format(time.RFC3339))},
		{"Date", "Description", "Engine", "Amount"},
	}
	for _, g := range groups {
		for _, tx := range g.Transactions {
			rows = append(rows, []any{tx.HistoryDate, tx.Description, core.EngineBucket(tx.EngineUsed), tx.Amount})
		}
	}

	rng := fmt.Sprintf("%s!A:D", c.reportSheet)
	vr := &gsheet.ValueRange{Values: rows}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append report to sheet %s: %w", c.reportSheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}

	slog.InfoContext(ctx, "Transaction report exported",
		"user_id", userID,
		"rows", len(rows),
		"range", ref)

	return ref, nil
}
