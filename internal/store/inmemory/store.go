// Package inmemory provides an in-memory store.Store. Data is lost on
// service restart - it backs local development and tests; production uses
// the sqlite-backed store.
package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/credvoice/persona-service/internal/domain"
	"github.com/credvoice/persona-service/internal/store"
)

type recordKey struct {
	table string
	pk    string
	sk    string
}

// Store is an in-memory implementation of store.Store. It is safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	records map[recordKey]store.Record
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		records: make(map[recordKey]store.Record),
	}
}

// GetItem implements store.Store.
func (s *Store) GetItem(ctx context.Context, table, partitionKey, sortKey string) (store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[recordKey{table, partitionKey, sortKey}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec.Clone(), nil
}

// PutItem implements store.Store.
func (s *Store) PutItem(ctx context.Context, table, partitionKey, sortKey string, rec store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[recordKey{table, partitionKey, sortKey}] = rec.Clone()
	return nil
}

// UpdateItem implements store.Store.
func (s *Store) UpdateItem(ctx context.Context, table, partitionKey, sortKey string, fields map[string]any) (store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{table, partitionKey, sortKey}
	rec, ok := s.records[key]
	if !ok {
		return nil, domain.ErrNotFound
	}

	updated := rec.Clone()
	for name, value := range fields {
		updated[name] = value
	}
	s.records[key] = updated

	return updated.Clone(), nil
}

// QueryByPrefix implements store.Store.
func (s *Store) QueryByPrefix(ctx context.Context, table, partitionKey, sortKeyPrefix string) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type hit struct {
		sk  string
		rec store.Record
	}
	var hits []hit
	for key, rec := range s.records {
		if key.table != table || key.pk != partitionKey {
			continue
		}
		if !strings.HasPrefix(key.sk, sortKeyPrefix) {
			continue
		}
		hits = append(hits, hit{key.sk, rec.Clone()})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].sk < hits[j].sk })

	result := make([]store.Record, 0, len(hits))
	for _, h := range hits {
		result = append(result, h.rec)
	}
	return result, nil
}

// Scan implements store.Store.
func (s *Store) Scan(ctx context.Context, table string) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []store.Record
	for key, rec := range s.records {
		if key.table == table {
			result = append(result, rec.Clone())
		}
	}
	return result, nil
}

// Ensure Store implements the interface.
var _ store.Store = (*Store)(nil)
