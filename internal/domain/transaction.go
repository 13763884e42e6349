package domain

// TransactionCredit and TransactionDebit are the two transaction types.
// The type is always derived from the sign of the amount, never set
// independently.
const (
	TransactionCredit = "credit"
	TransactionDebit  = "debit"
)

// Transaction is one classified bank-statement row. Amounts are whole
// currency units (rounded away from zero at parse time), positive for
// credits and negative for debits. Transactions are immutable after
// ingestion except for late corrections via upsert-by-id.
type Transaction struct {
	TransactionID string `json:"transaction_id"`
	Timestamp     string `json:"timestamp"` // RFC 3339, from the statement row date
	Narration     string `json:"narration"`
	Amount        int64  `json:"amount"`
	Type          string `json:"type"`
	Category      string `json:"category"`
}

// MonthlySummary accumulates income and spends for one calendar month.
// Surplus is recomputed after every increment so it is never stale.
type MonthlySummary struct {
	Income  int64 `json:"income"`
	Spends  int64 `json:"spends"`
	Surplus int64 `json:"surplus"`
}

// CumulativeTotals holds the whole-statement totals.
type CumulativeTotals struct {
	Income     int64            `json:"income"`
	Spends     int64            `json:"spends"`
	Surplus    int64            `json:"surplus"`
	Categories map[string]int64 `json:"categories"`
}

// FinancialSummary is derived wholesale from one statement upload. Keys of
// MonthlyHistoric are "YYYY-MM" month buckets taken from the row dates, not
// the upload time.
type FinancialSummary struct {
	MonthlyHistoric map[string]*MonthlySummary `json:"monthly_historic"`
	TotalCumulative CumulativeTotals           `json:"total_cumulative"`
}

// SpendingPattern holds per-month averages derived from a FinancialSummary
// by dividing the cumulative figures by the number of observed months
// (minimum divisor 1). The savings rate is an integer percentage.
type SpendingPattern struct {
	MonthlyAvgIncome     int64            `json:"monthly_avg_income"`
	MonthlyAvgSpend      int64            `json:"monthly_avg_spend"`
	MonthlySavingsRate   int64            `json:"monthly_savings_rate"`
	MonthlyAvgSurplus    int64            `json:"monthly_avg_surplus"`
	MonthlyAvgCategories map[string]int64 `json:"monthly_avg_categories"`
}
