package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/credvoice/persona-service/internal/domain"
	"github.com/credvoice/persona-service/internal/store"
)

// ErrEmailTaken reports a registration attempt with an email that already
// has an account.
var ErrEmailTaken = errors.New("email already registered")

// ErrInvalidCredentials reports a failed login. The caller must not learn
// whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Users manages account records, which live on the persona record itself:
// a new user starts as a persona with credentials and default profile
// fields.
type Users struct {
	store store.Store
	log   zerolog.Logger

	// now is a hook for tests to pin timestamps.
	now func() time.Time
}

// NewUsers creates the account service.
func NewUsers(s store.Store, log zerolog.Logger) *Users {
	return &Users{store: s, log: log, now: time.Now}
}

// Register creates an account, rejecting duplicate emails, and seeds the
// user's persona with defaults. It returns the new user id.
func (u *Users) Register(ctx context.Context, email, username, password string) (string, error) {
	existing, err := u.findByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", ErrEmailTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", err
	}

	userID := uuid.New().String()
	now := u.now().Format(domain.TimestampLayout)
	rec := store.Record{
		domain.FieldUserID:          userID,
		domain.FieldEmail:           email,
		domain.FieldUsername:        username,
		domain.FieldPassword:        hash,
		domain.FieldRiskProfile:     domain.DefaultRiskProfile,
		domain.FieldInvestmentGoals: []any{},
		domain.FieldSpendingPattern: map[string]any{},
		domain.FieldCreatedAt:       now,
		domain.FieldUpdatedAt:       now,
	}
	if err := u.store.PutItem(ctx, store.TablePersonas, userID, "", rec); err != nil {
		return "", fmt.Errorf("auth: create user: %w", err)
	}

	u.log.Info().Str("user_id", userID).Msg("User registered")
	return userID, nil
}

// Authenticate checks an email/password pair and returns the user id.
func (u *Users) Authenticate(ctx context.Context, email, password string) (string, error) {
	rec, err := u.findByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", ErrInvalidCredentials
	}
	if !VerifyPassword(rec.String(domain.FieldPassword), password) {
		return "", ErrInvalidCredentials
	}
	return rec.String(domain.FieldUserID), nil
}

// findByEmail scans the persona table for an account with the given email.
// Email is not a key, so this is a full scan; registration and login are
// rare enough that it has not been worth a secondary index.
func (u *Users) findByEmail(ctx context.Context, email string) (store.Record, error) {
	records, err := u.store.Scan(ctx, store.TablePersonas)
	if err != nil {
		return nil, fmt.Errorf("auth: find user by email: %w", err)
	}
	for _, rec := range records {
		if rec.String(domain.FieldEmail) == email {
			return rec, nil
		}
	}
	return nil, nil
}
