package core

// TopUpBucket is the synthetic engine bucket for transactions without a real
// engine attribution (empty or "N/A" engine_used).
const TopUpBucket = "Top Up"

type (
	// Transaction is a single balance movement as returned by the platform
	// backend. Amount is a decimal string; its sign separates top-ups
	// (positive) from engine usage (negative). Transactions are immutable
	// once fetched.
	Transaction struct {
		Description string `json:"description"`
		Amount      string `json:"amount"`
		CreatedAt   string `json:"created_at"`
		EngineUsed  string `json:"engine_used"`
		// HistoryDate is stamped by Flatten with the date of the containing
		// history item. Not part of the backend payload.
		HistoryDate string `json:"historyDate,omitempty"`
	}

	// HistoryItem is a day bucket of transactions, in backend order.
	HistoryItem struct {
		Date         string        `json:"date"`
		Transactions []Transaction `json:"transactions"`
	}

	// UserBalance is one user's balance plus transaction history.
	// TotalBalance is authoritative and never recomputed from History.
	UserBalance struct {
		UserID       string        `json:"user_id"`
		TotalBalance float64       `json:"total_balance"`
		History      []HistoryItem `json:"history"`
	}

	// EngineGroup is a derived, per-render grouping of transactions under
	// one engine bucket.
	EngineGroup struct {
		Engine       string
		Transactions []Transaction
	}

	// ChartPoint is a chart-ready (name, value) pair. Values are usage-only
	// and rounded to 2 decimals.
	ChartPoint struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}
)

// EngineBucket maps a transaction's engine_used to its display bucket.
// Empty and the literal "N/A" collapse into TopUpBucket, conflating true
// top-ups with usage rows that simply lack an engine. That matches the
// backend's observed data contract.
func EngineBucket(engine string) string {
	if engine == "" || engine == "N/A" {
		return TopUpBucket
	}
	return engine
}
