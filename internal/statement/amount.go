package statement

import "github.com/shopspring/decimal"

// RoundAmount rounds a signed amount to whole currency units away from
// zero: the ceiling of the absolute value with the original sign reapplied.
// A debit of 0.01 therefore rounds to -1, not 0.
func RoundAmount(amount decimal.Decimal) int64 {
	rounded := amount.Abs().Ceil().IntPart()
	if amount.IsNegative() {
		return -rounded
	}
	return rounded
}
