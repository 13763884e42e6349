package statement

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/credvoice/persona-service/internal/domain"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

var statementHeader = []string{"Date", "Narration", "Deposit Amt.", "Withdrawal Amt."}

// buildStatement assembles an in-memory .xlsx workbook from string cells.
func buildStatement(t *testing.T, header []string, rows [][]string) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	all := append([][]string{header}, rows...)
	for i, row := range all {
		for j, cell := range row {
			name, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellStr(sheet, name, cell); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestParse(t *testing.T) {
	r := buildStatement(t, statementHeader, [][]string{
		{"15/01/2024", "NEFT INFOSYS SALARY", "50000", ""},
		{"20/01/2024", "rent transfer", "", "20000"},
		{"21/01/2024", "zomato order", "", "449.50"},
	})

	rows, err := Parse(r)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	first := rows[0]
	if got := first.Date.Format("2006-01-02"); got != "2024-01-15" {
		t.Errorf("date = %s, want 2024-01-15", got)
	}
	if first.Narration != "NEFT INFOSYS SALARY" {
		t.Errorf("narration = %q", first.Narration)
	}
	if !first.Deposit.Equal(mustDecimal(t, "50000")) {
		t.Errorf("deposit = %s, want 50000", first.Deposit)
	}
	if !rows[2].Withdrawal.Equal(mustDecimal(t, "449.50")) {
		t.Errorf("withdrawal = %s, want 449.50", rows[2].Withdrawal)
	}
}

func TestParse_DropsIncompleteRows(t *testing.T) {
	r := buildStatement(t, statementHeader, [][]string{
		{"", "opening balance", "", ""},
		{"15/01/2024", "", "100", ""},
		{"16/01/2024", "valid row", "100", ""},
	})

	rows, err := Parse(r)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1 (incomplete rows dropped)", len(rows))
	}
	if rows[0].Narration != "valid row" {
		t.Errorf("kept row narration = %q", rows[0].Narration)
	}
}

func TestParse_InvalidAmountsTreatedAsZero(t *testing.T) {
	r := buildStatement(t, statementHeader, [][]string{
		{"15/01/2024", "weird cells", "n/a", "-"},
	})

	rows, err := Parse(r)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !rows[0].Deposit.IsZero() || !rows[0].Withdrawal.IsZero() {
		t.Errorf("amounts = %s / %s, want 0 / 0", rows[0].Deposit, rows[0].Withdrawal)
	}
}

func TestParse_MissingColumnFailsWholeFile(t *testing.T) {
	r := buildStatement(t, []string{"Date", "Narration", "Deposit Amt."}, [][]string{
		{"15/01/2024", "salary", "100"},
	})

	_, err := Parse(r)
	if !errors.Is(err, domain.ErrMalformedStatement) {
		t.Errorf("Parse error = %v, want ErrMalformedStatement", err)
	}
}

func TestParse_HeaderWhitespaceTolerated(t *testing.T) {
	r := buildStatement(t, []string{" Date ", "Narration", "Deposit Amt.", "Withdrawal Amt."}, [][]string{
		{"15/01/2024", "salary", "100", ""},
	})

	rows, err := Parse(r)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows, want 1", len(rows))
	}
}

func TestParse_InvalidDateFailsWholeFile(t *testing.T) {
	r := buildStatement(t, statementHeader, [][]string{
		{"2024-01-15", "iso date not accepted", "100", ""},
	})

	_, err := Parse(r)
	if !errors.Is(err, domain.ErrMalformedStatement) {
		t.Errorf("Parse error = %v, want ErrMalformedStatement", err)
	}
}

func TestParse_UnreadableWorkbook(t *testing.T) {
	_, err := Parse(strings.NewReader("this is not a spreadsheet"))
	if !errors.Is(err, domain.ErrMalformedStatement) {
		t.Errorf("Parse error = %v, want ErrMalformedStatement", err)
	}
}
