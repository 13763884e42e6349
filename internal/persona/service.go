// Package persona owns the user persona record: a cache-aside read path
// and a partial-update write path over durable storage.
package persona

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/credvoice/persona-service/internal/cache"
	"github.com/credvoice/persona-service/internal/domain"
	"github.com/credvoice/persona-service/internal/store"
)

const cacheKeyPrefix = "persona:"

// Cache TTLs. The read-miss TTL and the write-through TTL differ; the gap
// is carried over from the original behavior and is pending product
// clarification, so keep the two constants distinct.
const (
	readTTL  = 60 * time.Second
	writeTTL = 30 * time.Minute
)

// sensitiveFields are stripped before a persona enters the cache or leaves
// the service. Once stripped they are never re-added on the read path.
var sensitiveFields = []string{
	domain.FieldUsername,
	domain.FieldPassword,
	domain.FieldEmail,
	domain.FieldUserID,
}

// Service is the persona store. Concurrent upserts for the same user are
// not serialized: the last writer wins at the field-set level, so two
// writers updating overlapping fields can lose each other's values. Writers
// updating disjoint fields are safe because updates merge field-by-field
// into the stored record.
type Service struct {
	store store.Store
	cache cache.Cache
	log   zerolog.Logger

	// now is a hook for tests to pin timestamps.
	now func() time.Time
}

// NewService creates a persona service over the given storage and cache.
func NewService(s store.Store, c cache.Cache, log zerolog.Logger) *Service {
	return &Service{
		store: s,
		cache: c,
		log:   log,
		now:   time.Now,
	}
}

// Get returns the persona for a user, consulting the cache first and
// populating it on a miss. Absence is reported as domain.ErrNotFound and is
// never cached.
func (s *Service) Get(ctx context.Context, userID string) (store.Record, error) {
	key := cacheKeyPrefix + userID

	cached, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		// A broken cache degrades to the durable read path.
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Persona cache read failed")
	}
	if hit {
		var rec store.Record
		if err := json.Unmarshal(cached, &rec); err == nil {
			return rec, nil
		}
		s.log.Warn().Str("user_id", userID).Msg("Discarding undecodable persona cache entry")
	}

	rec, err := s.store.GetItem(ctx, store.TablePersonas, userID, "")
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("persona: read %s: %w", userID, err)
	}

	stripped := stripSensitive(rec)
	s.populateCache(ctx, key, stripped, readTTL)
	return stripped, nil
}

// Upsert merges the given fields into the user's durable persona record,
// creating it when absent, and refreshes the cache with the result. Fields
// not named in the update are left untouched; updated_at always advances.
func (s *Service) Upsert(ctx context.Context, userID string, fields domain.PersonaFields) (store.Record, error) {
	if err := fields.Validate(); err != nil {
		return nil, fmt.Errorf("persona: %w", err)
	}

	now := s.now().Format(domain.TimestampLayout)

	var (
		updated store.Record
		err     error
	)
	_, getErr := s.store.GetItem(ctx, store.TablePersonas, userID, "")
	switch {
	case getErr == nil:
		updates := make(map[string]any, len(fields)+1)
		for name, value := range fields {
			updates[name] = value
		}
		updates[domain.FieldUpdatedAt] = now
		updated, err = s.store.UpdateItem(ctx, store.TablePersonas, userID, "", updates)
		if err != nil {
			return nil, fmt.Errorf("persona: update %s: %w", userID, err)
		}
	case errors.Is(getErr, domain.ErrNotFound):
		rec := store.Record{
			domain.FieldUserID:    userID,
			domain.FieldCreatedAt: now,
			domain.FieldUpdatedAt: now,
		}
		for name, value := range fields {
			rec[name] = value
		}
		if err := s.store.PutItem(ctx, store.TablePersonas, userID, "", rec); err != nil {
			return nil, fmt.Errorf("persona: create %s: %w", userID, err)
		}
		updated = rec
	default:
		return nil, fmt.Errorf("persona: read before upsert %s: %w", userID, getErr)
	}

	stripped := stripSensitive(updated)
	s.populateCache(ctx, cacheKeyPrefix+userID, stripped, writeTTL)
	return stripped, nil
}

// populateCache writes a record into the cache, logging failures rather
// than failing the request.
func (s *Service) populateCache(ctx context.Context, key string, rec store.Record, ttl time.Duration) {
	encoded, err := json.Marshal(rec)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Persona not cacheable")
		return
	}
	if err := s.cache.Set(ctx, key, encoded, ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Persona cache write failed")
	}
}

func stripSensitive(rec store.Record) store.Record {
	stripped := rec.Clone()
	for _, name := range sensitiveFields {
		delete(stripped, name)
	}
	return stripped
}
