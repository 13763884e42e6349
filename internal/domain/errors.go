package domain

import "errors"

// Sentinel errors shared across the service. Callers match them with
// errors.Is after wrapping.
var (
	// ErrNotFound reports that a keyed record (persona, transaction,
	// interaction) does not exist. Read paths surface it as an explicit
	// absence, not a failure.
	ErrNotFound = errors.New("record not found")

	// ErrMalformedStatement reports an unreadable statement upload or one
	// missing required columns. It is fatal to the whole ingestion call.
	ErrMalformedStatement = errors.New("malformed bank statement")

	// ErrUnknownField reports a persona update naming a field outside the
	// persona schema.
	ErrUnknownField = errors.New("unknown persona field")
)
