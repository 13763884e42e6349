package statement

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/credvoice/persona-service/internal/domain"
	"github.com/credvoice/persona-service/internal/store"
	"github.com/credvoice/persona-service/internal/store/inmemory"
)

// mockPersonas records upserts and can be told to fail.
type mockPersonas struct {
	fields []domain.PersonaFields
	err    error
}

func (m *mockPersonas) Upsert(ctx context.Context, userID string, fields domain.PersonaFields) (store.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.fields = append(m.fields, fields)
	return store.Record{"user_id": userID}, nil
}

func TestIngest(t *testing.T) {
	st := inmemory.NewStore()
	personas := &mockPersonas{}
	in := NewIngestor(st, personas, zerolog.Nop())

	r := buildStatement(t, statementHeader, [][]string{
		{"15/01/2024", "NEFT INFOSYS SALARY", "50000", ""},
		{"20/01/2024", "rent transfer", "", "20000"},
	})

	summary, err := in.Ingest(context.Background(), "u1", r)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	month := summary.MonthlyHistoric["2024-01"]
	if month == nil || month.Income != 50000 || month.Spends != 20000 || month.Surplus != 30000 {
		t.Errorf("month = %+v, want income 50000 spends 20000 surplus 30000", month)
	}

	stored, err := st.QueryByPrefix(context.Background(), store.TableTransactions, "u1", "")
	if err != nil {
		t.Fatalf("query transactions: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d transactions, want 2", len(stored))
	}

	var rentStored store.Record
	for _, rec := range stored {
		if rec.String("category") == "rent" {
			rentStored = rec
		}
	}
	if rentStored == nil {
		t.Fatal("no stored transaction categorized rent")
	}
	if rentStored["amount"] != int64(-20000) {
		t.Errorf("stored rent amount = %v, want -20000", rentStored["amount"])
	}

	if len(personas.fields) != 1 {
		t.Fatalf("persona upserted %d times, want 1", len(personas.fields))
	}
	fields := personas.fields[0]
	if _, ok := fields[domain.FieldSpendingPattern]; !ok {
		t.Error("upsert missing spending_pattern")
	}
	if _, ok := fields[domain.FieldFinancialSummary]; !ok {
		t.Error("upsert missing financial_summary")
	}
}

func TestIngest_MalformedAbortsBeforeWrites(t *testing.T) {
	st := inmemory.NewStore()
	personas := &mockPersonas{}
	in := NewIngestor(st, personas, zerolog.Nop())

	r := buildStatement(t, []string{"Date", "Narration"}, [][]string{
		{"15/01/2024", "salary"},
	})

	_, err := in.Ingest(context.Background(), "u1", r)
	if !errors.Is(err, domain.ErrMalformedStatement) {
		t.Fatalf("Ingest error = %v, want ErrMalformedStatement", err)
	}

	stored, _ := st.QueryByPrefix(context.Background(), store.TableTransactions, "u1", "")
	if len(stored) != 0 {
		t.Errorf("stored %d transactions after malformed input, want 0", len(stored))
	}
	if len(personas.fields) != 0 {
		t.Error("persona updated after malformed input")
	}
}

func TestIngest_PersonaFailureIsBestEffort(t *testing.T) {
	st := inmemory.NewStore()
	personas := &mockPersonas{err: errors.New("storage down")}
	in := NewIngestor(st, personas, zerolog.Nop())

	r := buildStatement(t, statementHeader, [][]string{
		{"15/01/2024", "salary", "100", ""},
	})

	summary, err := in.Ingest(context.Background(), "u1", r)
	if err != nil {
		t.Fatalf("Ingest should not fail when only the persona update fails: %v", err)
	}
	if summary.TotalCumulative.Income != 100 {
		t.Errorf("income = %d, want 100", summary.TotalCumulative.Income)
	}

	stored, _ := st.QueryByPrefix(context.Background(), store.TableTransactions, "u1", "")
	if len(stored) != 1 {
		t.Errorf("stored %d transactions, want 1", len(stored))
	}
}
