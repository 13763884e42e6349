package statement

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/credvoice/persona-service/internal/domain"
	"github.com/credvoice/persona-service/internal/store"
)

// PersonaUpserter is the slice of the persona service the ingestor needs.
type PersonaUpserter interface {
	Upsert(ctx context.Context, userID string, fields domain.PersonaFields) (store.Record, error)
}

// Ingestor runs the full statement pipeline: parse, aggregate, store
// transactions, then update the persona's derived aggregates.
type Ingestor struct {
	store    store.Store
	personas PersonaUpserter
	log      zerolog.Logger
}

// NewIngestor creates a statement ingestor.
func NewIngestor(s store.Store, personas PersonaUpserter, log zerolog.Logger) *Ingestor {
	return &Ingestor{
		store:    s,
		personas: personas,
		log:      log,
	}
}

// Ingest processes one uploaded statement for a user and returns the
// financial summary it produced. Parse failures abort the whole call with
// domain.ErrMalformedStatement; transaction write failures abort with the
// storage error. The persona update afterwards is best effort: there is no
// transaction spanning the statement and persona writes, so a failure there
// is logged and the summary still returned.
func (in *Ingestor) Ingest(ctx context.Context, userID string, r io.Reader) (*domain.FinancialSummary, error) {
	rows, err := Parse(r)
	if err != nil {
		return nil, err
	}

	summary, transactions := Aggregate(rows)

	for _, txn := range transactions {
		rec := store.Record{
			"user_id":        userID,
			"transaction_id": txn.TransactionID,
			"timestamp":      txn.Timestamp,
			"narration":      txn.Narration,
			"amount":         txn.Amount,
			"type":           txn.Type,
			"category":       txn.Category,
		}
		if err := in.store.PutItem(ctx, store.TableTransactions, userID, txn.TransactionID, rec); err != nil {
			return nil, fmt.Errorf("store transaction %s: %w", txn.TransactionID, err)
		}
	}

	fields := domain.PersonaFields{
		domain.FieldSpendingPattern:  DeriveSpendingPattern(summary),
		domain.FieldFinancialSummary: summary,
	}
	if _, err := in.personas.Upsert(ctx, userID, fields); err != nil {
		in.log.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("Transactions stored but persona aggregates not updated")
	}

	in.log.Info().
		Str("user_id", userID).
		Int("transactions", len(transactions)).
		Int("months", len(summary.MonthlyHistoric)).
		Msg("Statement ingested")

	return summary, nil
}
