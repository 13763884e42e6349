// Package transactions exposes a user's stored bank transactions: listing
// and late corrections via upsert-by-id.
package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/credvoice/persona-service/internal/domain"
	"github.com/credvoice/persona-service/internal/store"
)

// Service reads and corrects transaction records.
type Service struct {
	store store.Store

	// now is a hook for tests to pin timestamps.
	now func() time.Time
}

// NewService creates a transactions service.
func NewService(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// List returns every stored transaction for a user, ordered by id. An
// empty result is reported as domain.ErrNotFound, matching the read-path
// absence contract.
func (s *Service) List(ctx context.Context, userID string) ([]store.Record, error) {
	records, err := s.store.QueryByPrefix(ctx, store.TableTransactions, userID, "")
	if err != nil {
		return nil, fmt.Errorf("transactions: list for %s: %w", userID, err)
	}
	if len(records) == 0 {
		return nil, domain.ErrNotFound
	}
	return records, nil
}

// Upsert merges the given fields into a transaction record, creating it
// when absent. A missing transaction_id mints a new one. Key fields are
// never overwritten by the update.
func (s *Service) Upsert(ctx context.Context, userID string, fields map[string]any) (store.Record, error) {
	transactionID, _ := fields["transaction_id"].(string)
	if transactionID == "" {
		transactionID = uuid.New().String()
	}

	now := s.now().Format(domain.TimestampLayout)

	_, err := s.store.GetItem(ctx, store.TableTransactions, userID, transactionID)
	switch {
	case err == nil:
		updates := make(map[string]any, len(fields)+1)
		for name, value := range fields {
			if name == "user_id" || name == "transaction_id" {
				continue
			}
			updates[name] = value
		}
		updates["updated_at"] = now

		updated, err := s.store.UpdateItem(ctx, store.TableTransactions, userID, transactionID, updates)
		if err != nil {
			return nil, fmt.Errorf("transactions: update %s: %w", transactionID, err)
		}
		return updated, nil

	case errors.Is(err, domain.ErrNotFound):
		rec := store.Record{
			"user_id":        userID,
			"transaction_id": transactionID,
			"created_at":     now,
			"updated_at":     now,
		}
		for name, value := range fields {
			if _, taken := rec[name]; taken {
				continue
			}
			rec[name] = value
		}
		if err := s.store.PutItem(ctx, store.TableTransactions, userID, transactionID, rec); err != nil {
			return nil, fmt.Errorf("transactions: create %s: %w", transactionID, err)
		}
		return rec, nil

	default:
		return nil, fmt.Errorf("transactions: read before upsert %s: %w", transactionID, err)
	}
}
