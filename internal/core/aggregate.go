// Package core holds the transaction aggregation and reporting logic shared
// by the dashboard, balance, and export views.
package core

import (
	"math"
	"strconv"
)

// Summary holds the three scalar totals plus chart-ready usage data for a
// set of transactions. Balance is sourced from the backend field, never
// derived from the transactions themselves.
type Summary struct {
	Balance    float64
	TotalTopUp float64
	TotalUsage float64
	Chart      []ChartPoint
}

// PlatformSummary is the all-users variant shown on the admin dashboard.
type PlatformSummary struct {
	Summary
	Users int
}

// Flatten concatenates the transactions of all history items in input order,
// stamping each with its parent item's date. No deduplication and no amount
// validation happens here.
func Flatten(history []HistoryItem) []Transaction {
	var out []Transaction
	for _, h := range history {
		for _, t := range h.Transactions {
			t.HistoryDate = h.Date
			out = append(out, t)
		}
	}
	return out
}

// GroupByEngine partitions transactions into engine buckets, preserving
// first-seen bucket order. Every transaction lands in exactly one bucket.
func GroupByEngine(txs []Transaction) []EngineGroup {
	var groups []EngineGroup
	index := make(map[string]int)
	for _, t := range txs {
		bucket := EngineBucket(t.EngineUsed)
		i, ok := index[bucket]
		if !ok {
			i = len(groups)
			index[bucket] = i
			groups = append(groups, EngineGroup{Engine: bucket})
		}
		groups[i].Transactions = append(groups[i].Transactions, t)
	}
	return groups
}

// Aggregate computes top-up and usage totals plus per-engine usage chart
// data for a flat transaction list. Unparseable amounts are skipped
// silently; zero amounts count in neither total. Chart entries carry only
// usage (negative amounts) and appear in first-seen engine order.
func Aggregate(txs []Transaction) Summary {
	var s Summary
	var usage []ChartPoint
	index := make(map[string]int)
	for _, t := range txs {
		amount, ok := parseAmount(t.Amount)
		if !ok {
			continue
		}
		switch {
		case amount > 0:
			s.TotalTopUp += amount
		case amount < 0:
			abs := math.Abs(amount)
			s.TotalUsage += abs
			bucket := EngineBucket(t.EngineUsed)
			i, seen := index[bucket]
			if !seen {
				i = len(usage)
				index[bucket] = i
				usage = append(usage, ChartPoint{Name: bucket})
			}
			usage[i].Value += abs
		}
	}
	for i := range usage {
		usage[i].Value = Round2(usage[i].Value)
	}
	s.Chart = usage
	return s
}

// AggregatePlatform sums the authoritative per-user balances and aggregates
// every user's transactions into one platform-wide summary.
func AggregatePlatform(users []UserBalance) PlatformSummary {
	var txs []Transaction
	p := PlatformSummary{Users: len(users)}
	for _, u := range users {
		p.Balance += u.TotalBalance
		txs = append(txs, Flatten(u.History)...)
	}
	s := Aggregate(txs)
	p.TotalTopUp = s.TotalTopUp
	p.TotalUsage = s.TotalUsage
	p.Chart = s.Chart
	return p
}

// Round2 rounds to 2 decimal places the way the views format numbers:
// fixed-precision string formatting, then re-parsing.
func Round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// parseAmount parses a decimal-as-string amount. The bool is false for
// malformed values, which the aggregator drops without surfacing an error.
func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
