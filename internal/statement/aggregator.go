package statement

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/credvoice/persona-service/internal/domain"
)

// Aggregate classifies the parsed rows and folds them into a
// FinancialSummary plus the transaction records to store. Each call
// produces a fresh summary and fresh transaction ids: re-ingesting the same
// statement duplicates transactions rather than deduplicating against prior
// uploads.
func Aggregate(rows []Row) (*domain.FinancialSummary, []domain.Transaction) {
	summary := &domain.FinancialSummary{
		MonthlyHistoric: make(map[string]*domain.MonthlySummary),
		TotalCumulative: domain.CumulativeTotals{
			Categories: make(map[string]int64),
		},
	}

	transactions := make([]domain.Transaction, 0, len(rows))

	for _, row := range rows {
		signed := row.Deposit
		if !row.Deposit.IsPositive() {
			signed = row.Withdrawal.Neg()
		}

		txnType := domain.TransactionDebit
		if signed.IsPositive() {
			txnType = domain.TransactionCredit
		}

		rounded := RoundAmount(signed)
		magnitude := rounded
		if magnitude < 0 {
			magnitude = -magnitude
		}

		category := Categorize(row.Narration)
		summary.TotalCumulative.Categories[category] += magnitude

		monthKey := row.Date.Format("2006-01")
		month, ok := summary.MonthlyHistoric[monthKey]
		if !ok {
			month = &domain.MonthlySummary{}
			summary.MonthlyHistoric[monthKey] = month
		}

		if txnType == domain.TransactionCredit {
			month.Income += magnitude
			summary.TotalCumulative.Income += magnitude
		} else {
			month.Spends += magnitude
			summary.TotalCumulative.Spends += magnitude
		}
		month.Surplus = month.Income - month.Spends

		transactions = append(transactions, domain.Transaction{
			TransactionID: fmt.Sprintf("%s:%s", row.Date.Format("0106"), uuid.New()),
			Timestamp:     row.Date.Format(time.RFC3339),
			Narration:     row.Narration,
			Amount:        rounded,
			Type:          txnType,
			Category:      category,
		})
	}

	// Recomputed once at the end rather than accumulated per row, so the
	// invariant income - spends == surplus holds exactly.
	summary.TotalCumulative.Surplus = summary.TotalCumulative.Income - summary.TotalCumulative.Spends

	return summary, transactions
}

// DeriveSpendingPattern computes per-month averages from a financial
// summary. All divisions use floored division so a negative surplus rounds
// toward negative infinity, matching the stored historic figures.
func DeriveSpendingPattern(summary *domain.FinancialSummary) domain.SpendingPattern {
	months := int64(len(summary.MonthlyHistoric))
	if months == 0 {
		months = 1
	}

	totals := summary.TotalCumulative

	var savingsRate int64
	if totals.Income > 0 {
		savingsRate = floorDiv(totals.Surplus*100, totals.Income)
	}

	avgCategories := make(map[string]int64, len(totals.Categories))
	for category, total := range totals.Categories {
		avgCategories[category] = floorDiv(total, months)
	}

	return domain.SpendingPattern{
		MonthlyAvgIncome:     floorDiv(totals.Income, months),
		MonthlyAvgSpend:      floorDiv(totals.Spends, months),
		MonthlyAvgSurplus:    floorDiv(totals.Surplus, months),
		MonthlySavingsRate:   savingsRate,
		MonthlyAvgCategories: avgCategories,
	}
}

// floorDiv divides rounding toward negative infinity, unlike Go's
// truncating integer division.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
