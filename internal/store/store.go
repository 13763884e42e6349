// Package store defines the durable keyed-record storage used by the
// persona service. Records are schemaless JSON documents addressed by a
// table name, a partition key, and an optional sort key, with partial field
// updates and sort-key prefix queries.
package store

import "context"

// Logical tables.
const (
	TablePersonas     = "user_personas"
	TableTransactions = "bank_transactions"
	TableInteractions = "interaction_history"
)

// Record is one stored document. Values are whatever encoding/json produces
// for the document's fields.
type Record map[string]any

// Clone returns a copy of the record that shares no top-level storage with
// the original. Nested values are treated as immutable by all callers.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the record's value for name when it is a non-empty string.
func (r Record) String(name string) string {
	s, _ := r[name].(string)
	return s
}

// Store is the durable storage capability. Implementations must return
// domain.ErrNotFound (wrapped or bare) from GetItem and UpdateItem when the
// addressed record does not exist.
type Store interface {
	// GetItem fetches one record. Single-key tables use an empty sort key.
	GetItem(ctx context.Context, table, partitionKey, sortKey string) (Record, error)

	// PutItem writes a whole record, replacing any existing one.
	PutItem(ctx context.Context, table, partitionKey, sortKey string, rec Record) error

	// UpdateItem merges the named fields into an existing record and
	// returns the updated record. Fields absent from the update are left
	// untouched.
	UpdateItem(ctx context.Context, table, partitionKey, sortKey string, fields map[string]any) (Record, error)

	// QueryByPrefix returns all records under a partition key whose sort
	// key starts with the given prefix, ordered by sort key. An empty
	// prefix returns the whole partition.
	QueryByPrefix(ctx context.Context, table, partitionKey, sortKeyPrefix string) ([]Record, error)

	// Scan returns every record in a table. Used only for low-volume
	// lookups without a key, such as finding a user by email.
	Scan(ctx context.Context, table string) ([]Record, error)
}
