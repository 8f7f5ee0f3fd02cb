package core

import (
	"fmt"
	"io"
	"strings"
)

// csvHeader matches the export produced by the dashboard's download button.
const csvHeader = "Date,Description,Engine,Amount"

// WriteTransactionsCSV serializes engine groups as CSV in
// group-then-transaction order. The description field is wrapped in double
// quotes with embedded quotes doubled; engine and amount are emitted raw,
// exactly as the export has always behaved.
func WriteTransactionsCSV(w io.Writer, groups []EngineGroup) error {
	if _, err := io.WriteString(w, csvHeader+"\n"); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, g := range groups {
		for _, t := range g.Transactions {
			desc := `"` + strings.ReplaceAll(t.Description, `"`, `""`) + `"`
			row := strings.Join([]string{t.HistoryDate, desc, EngineBucket(t.EngineUsed), t.Amount}, ",")
			if _, err := io.WriteString(w, row+"\n"); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	return nil
}

// CSVFileName is the download name for a user's transaction export.
func CSVFileName(userID string) string {
	return "transactions-" + userID + ".csv"
}
