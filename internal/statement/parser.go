package statement

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/credvoice/persona-service/internal/domain"
)

// Required statement columns, matched by exact trimmed header name.
const (
	colDate       = "Date"
	colNarration  = "Narration"
	colDeposit    = "Deposit Amt."
	colWithdrawal = "Withdrawal Amt."
)

// dateLayout is the day/month/year format used by the statement export.
const dateLayout = "02/01/2006"

// Row is one normalized statement row before classification. Amounts keep
// their decimal precision here; rounding happens during aggregation.
type Row struct {
	Date       time.Time
	Narration  string
	Deposit    decimal.Decimal
	Withdrawal decimal.Decimal
}

// Parse reads a .xlsx bank-statement export and returns its normalized
// rows. A workbook that cannot be read, or whose first sheet is missing any
// required column, fails the whole file with domain.ErrMalformedStatement.
// Rows missing a date or narration are dropped; blank or non-numeric amount
// cells are treated as zero.
func Parse(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", domain.ErrMalformedStatement, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", domain.ErrMalformedStatement)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", domain.ErrMalformedStatement, sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", domain.ErrMalformedStatement, sheet)
	}

	columns, err := locateColumns(rows[0])
	if err != nil {
		return nil, err
	}

	var result []Row
	for i, cells := range rows[1:] {
		dateText := cellAt(cells, columns[colDate])
		narration := cellAt(cells, columns[colNarration])
		if dateText == "" || narration == "" {
			continue
		}

		date, err := time.Parse(dateLayout, dateText)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: invalid date %q", domain.ErrMalformedStatement, i+2, dateText)
		}

		result = append(result, Row{
			Date:       date,
			Narration:  narration,
			Deposit:    parseAmountCell(cellAt(cells, columns[colDeposit])),
			Withdrawal: parseAmountCell(cellAt(cells, columns[colWithdrawal])),
		})
	}

	return result, nil
}

// locateColumns maps the required column names to their indexes in the
// header row.
func locateColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, 4)
	for idx, name := range header {
		columns[strings.TrimSpace(name)] = idx
	}
	for _, required := range []string{colDate, colNarration, colDeposit, colWithdrawal} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", domain.ErrMalformedStatement, required)
		}
	}
	return columns, nil
}

func cellAt(cells []string, idx int) string {
	if idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

// parseAmountCell coerces an amount cell to a decimal, treating blank or
// unparsable values as zero.
func parseAmountCell(text string) decimal.Decimal {
	if text == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(text, ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return amount
}
