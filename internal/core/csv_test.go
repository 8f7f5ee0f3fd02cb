package core

import (
	"encoding/csv"
	"strings"
	"testing"
)

func TestWriteTransactionsCSVRoundTrip(t *testing.T) {
	groups := []EngineGroup{
		{Engine: "GPT", Transactions: []Transaction{
			{HistoryDate: "2025-03-01", Description: `He said "hi"`, Amount: "-2.50", EngineUsed: "GPT"},
			{HistoryDate: "2025-03-02", Description: "plain, with comma", Amount: "-1.00", EngineUsed: "GPT"},
		}},
		{Engine: TopUpBucket, Transactions: []Transaction{
			{HistoryDate: "2025-03-03", Description: "monthly top up", Amount: "20.00", EngineUsed: "N/A"},
		}},
	}

	var b strings.Builder
	if err := WriteTransactionsCSV(&b, groups); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(b.String())).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}

	// Header plus one row per transaction, in group-then-transaction order.
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	header := strings.Join(records[0], ",")
	if header != "Date,Description,Engine,Amount" {
		t.Fatalf("unexpected header %q", header)
	}

	// Doubled quotes un-escape back to the original description.
	if records[1][1] != `He said "hi"` {
		t.Fatalf("description did not round-trip: %q", records[1][1])
	}
	if records[2][1] != "plain, with comma" {
		t.Fatalf("comma description did not round-trip: %q", records[2][1])
	}
	if records[3][2] != TopUpBucket || records[3][3] != "20.00" {
		t.Fatalf("unexpected top-up row: %v", records[3])
	}
}

func TestWriteTransactionsCSVEmpty(t *testing.T) {
	var b strings.Builder
	if err := WriteTransactionsCSV(&b, nil); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if b.String() != "Date,Description,Engine,Amount\n" {
		t.Fatalf("expected header only, got %q", b.String())
	}
}

func TestCSVFileName(t *testing.T) {
	if got := CSVFileName("u42"); got != "transactions-u42.csv" {
		t.Fatalf("unexpected file name %q", got)
	}
}
