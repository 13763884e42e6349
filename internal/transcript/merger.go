// Package transcript updates a user's persona from conversation
// transcripts: it builds an extraction prompt around the current persona,
// asks the language model for an updated persona, validates the response,
// and merges only the approved fields.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/credvoice/persona-service/internal/domain"
	"github.com/credvoice/persona-service/internal/store"
)

// Outcome tags a merge result so callers can decide how to treat failures
// instead of receiving a bare fallback value.
type Outcome int

const (
	// MergeUpdated: the persona was updated and committed.
	MergeUpdated Outcome = iota
	// MergeUnchanged: nothing to do (no usable messages); the persona is
	// the current one, untouched.
	MergeUnchanged
	// MergeFailed: the merge degraded at some stage; Persona holds the
	// last known-good record (nil when the user has no persona at all).
	MergeFailed
)

func (o Outcome) String() string {
	switch o {
	case MergeUpdated:
		return "updated"
	case MergeUnchanged:
		return "unchanged"
	default:
		return "failed"
	}
}

// MergeResult is the tagged outcome of one merge attempt.
type MergeResult struct {
	Outcome Outcome
	Persona store.Record
	Reason  string
}

// requiredFields must all be present in the model's response for the merge
// to be accepted.
var requiredFields = []string{
	domain.FieldRiskProfile,
	domain.FieldInvestmentGoals,
	domain.FieldSpendingPattern,
	domain.FieldFinancialSummary,
	domain.FieldPersonalContext,
}

// PersonaStore is the slice of the persona service the merger needs.
type PersonaStore interface {
	Get(ctx context.Context, userID string) (store.Record, error)
	Upsert(ctx context.Context, userID string, fields domain.PersonaFields) (store.Record, error)
}

// Merger performs transcript-driven persona merges.
type Merger struct {
	personas PersonaStore
	model    Model
	log      zerolog.Logger
}

// NewMerger creates a transcript merger.
func NewMerger(personas PersonaStore, model Model, log zerolog.Logger) *Merger {
	return &Merger{
		personas: personas,
		model:    model,
		log:      log,
	}
}

// Merge runs one merge attempt for a user. It never returns an error:
// every failure mode is reported through the result's Outcome, so the
// triggering flow (typically a transcript save) cannot be failed by a bad
// model response or a flaky network.
func (m *Merger) Merge(ctx context.Context, userID string, messages []ChatMessage) MergeResult {
	current, err := m.personas.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return m.failed(userID, nil, "no persona for user")
		}
		return m.failed(userID, nil, "fetch persona: "+err.Error())
	}

	conversation := filterMessages(messages)
	if len(conversation) == 0 {
		return MergeResult{Outcome: MergeUnchanged, Persona: current}
	}

	system, err := buildSystemPrompt(current)
	if err != nil {
		return m.failed(userID, current, err.Error())
	}

	// Single attempt, bounded by the model's own timeout.
	raw, err := m.model.Complete(ctx, system, conversation, directivePrompt)
	if err != nil {
		return m.failed(userID, current, "model call: "+err.Error())
	}

	proposed, err := parsePersonaResponse(raw)
	if err != nil {
		return m.failed(userID, current, err.Error())
	}

	for _, name := range requiredFields {
		if _, ok := proposed[name]; !ok {
			return m.failed(userID, current, "response missing required field "+name)
		}
	}

	fields := buildMergeFields(proposed, current)

	updated, err := m.personas.Upsert(ctx, userID, fields)
	if err != nil {
		return m.failed(userID, current, "commit persona: "+err.Error())
	}

	m.log.Info().Str("user_id", userID).Msg("Persona updated from transcript")
	return MergeResult{Outcome: MergeUpdated, Persona: updated}
}

func (m *Merger) failed(userID string, current store.Record, reason string) MergeResult {
	m.log.Warn().Str("user_id", userID).Str("reason", reason).Msg("Persona merge degraded")
	return MergeResult{Outcome: MergeFailed, Persona: current, Reason: reason}
}

// filterMessages keeps messages that carry both a role and content and
// normalizes every non-user role to assistant.
func filterMessages(messages []ChatMessage) []ChatMessage {
	var kept []ChatMessage
	for _, msg := range messages {
		if msg.Role == "" || msg.Content == "" {
			continue
		}
		role := domain.RoleAssistant
		if msg.Role == domain.RoleUser {
			role = domain.RoleUser
		}
		kept = append(kept, ChatMessage{Role: role, Content: msg.Content})
	}
	return kept
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parsePersonaResponse parses the model's text as a JSON object, falling
// back to the contents of a fenced code block when the model wrapped its
// answer in Markdown.
func parsePersonaResponse(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)

	var parsed map[string]any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return parsed, nil
	}

	match := fencedBlockRe.FindStringSubmatch(trimmed)
	if match == nil {
		return nil, errors.New("response contains no JSON object")
	}
	if err := json.Unmarshal([]byte(match[1]), &parsed); err != nil {
		return nil, errors.New("fenced block is not valid JSON: " + err.Error())
	}
	return parsed, nil
}

// buildMergeFields selects what to commit: the five required fields are
// taken wholesale from the proposal; name fields are adopted only when the
// current persona has none.
func buildMergeFields(proposed map[string]any, current store.Record) domain.PersonaFields {
	fields := make(domain.PersonaFields, len(requiredFields)+2)
	for _, name := range requiredFields {
		fields[name] = proposed[name]
	}

	for _, name := range []string{domain.FieldFirstName, domain.FieldLastName} {
		value, ok := proposed[name].(string)
		if ok && value != "" && current.String(name) == "" {
			fields[name] = value
		}
	}

	return fields
}
