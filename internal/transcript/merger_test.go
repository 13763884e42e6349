package transcript

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	cacheinmem "github.com/credvoice/persona-service/internal/cache/inmemory"
	"github.com/credvoice/persona-service/internal/persona"
	"github.com/credvoice/persona-service/internal/store"
	storeinmem "github.com/credvoice/persona-service/internal/store/inmemory"
)

// mockModel returns a canned response and records what it was asked.
type mockModel struct {
	response string
	err      error

	system   string
	messages []ChatMessage
	calls    int
}

func (m *mockModel) Complete(ctx context.Context, system string, messages []ChatMessage, directive string) (string, error) {
	m.calls++
	m.system = system
	m.messages = messages
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

const validResponse = `{
	"risk_profile": "Aggressive",
	"investment_goals": [{"id": "g1", "name": "House", "description": "", "targetAmount": 5000000, "targetDate": "2030-01-01", "priority": "high", "progress": 0}],
	"spending_pattern": {"monthly_avg_income": 50000},
	"financial_summary": {"monthly_historic": {}},
	"personal_context": ["Works in tech", "SENTIMENT: optimistic about markets"],
	"firstName": "Bob",
	"lastName": "Verma"
}`

func newMergeFixture(t *testing.T, model Model) (*Merger, *persona.Service, store.Store) {
	t.Helper()
	st := storeinmem.NewStore()
	personas := persona.NewService(st, cacheinmem.New(), zerolog.Nop())
	return NewMerger(personas, model, zerolog.Nop()), personas, st
}

func seed(t *testing.T, st store.Store, userID string, rec store.Record) {
	t.Helper()
	if err := st.PutItem(context.Background(), store.TablePersonas, userID, "", rec); err != nil {
		t.Fatalf("seed persona: %v", err)
	}
}

var conversation = []ChatMessage{
	{Role: "user", Content: "Hi, I'm thinking about buying a house."},
	{Role: "assistant", Content: "Great, what's your budget?"},
}

func TestMerge_NoPersona(t *testing.T) {
	merger, _, _ := newMergeFixture(t, &mockModel{response: validResponse})

	result := merger.Merge(context.Background(), "ghost", conversation)

	if result.Outcome != MergeFailed {
		t.Errorf("outcome = %v, want MergeFailed", result.Outcome)
	}
	if result.Persona != nil {
		t.Error("expected nil persona when the user has none")
	}
	if !strings.Contains(result.Reason, "no persona") {
		t.Errorf("reason = %q, want mention of missing persona", result.Reason)
	}
}

func TestMerge_NoUsableMessages(t *testing.T) {
	model := &mockModel{response: validResponse}
	merger, _, st := newMergeFixture(t, model)
	seed(t, st, "u1", store.Record{"user_id": "u1", "risk_profile": "Moderate"})

	result := merger.Merge(context.Background(), "u1", []ChatMessage{
		{Role: "user", Content: ""},
		{Role: "", Content: "orphan content"},
	})

	if result.Outcome != MergeUnchanged {
		t.Errorf("outcome = %v, want MergeUnchanged", result.Outcome)
	}
	if result.Persona.String("risk_profile") != "Moderate" {
		t.Error("unchanged result must carry the current persona")
	}
	if model.calls != 0 {
		t.Error("model must not be called without usable messages")
	}
}

func TestMerge_Updated(t *testing.T) {
	model := &mockModel{response: validResponse}
	merger, personas, st := newMergeFixture(t, model)
	seed(t, st, "u1", store.Record{
		"user_id":          "u1",
		"risk_profile":     "Moderate",
		"personal_context": []any{"existing insight"},
	})

	result := merger.Merge(context.Background(), "u1", conversation)

	if result.Outcome != MergeUpdated {
		t.Fatalf("outcome = %v (reason %q), want MergeUpdated", result.Outcome, result.Reason)
	}
	if result.Persona.String("risk_profile") != "Aggressive" {
		t.Errorf("risk_profile = %q, want Aggressive", result.Persona.String("risk_profile"))
	}
	if result.Persona.String("firstName") != "Bob" {
		t.Errorf("firstName = %q, want Bob (adopted when empty)", result.Persona.String("firstName"))
	}

	// The system prompt embeds the schema and the current persona.
	if !strings.Contains(model.system, "USER PERSONA SCHEMA") {
		t.Error("system prompt missing schema description")
	}
	if !strings.Contains(model.system, "existing insight") {
		t.Error("system prompt missing current persona")
	}
	if !strings.Contains(model.system, "SENTIMENT:") {
		t.Error("system prompt missing sentiment directive")
	}
	if len(model.messages) != 2 {
		t.Errorf("model saw %d messages, want 2", len(model.messages))
	}

	// Committed through the persona service.
	stored, err := personas.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get after merge: %v", err)
	}
	if stored.String("risk_profile") != "Aggressive" {
		t.Error("merge result not visible through persona store")
	}
}

func TestMerge_FencedResponse(t *testing.T) {
	model := &mockModel{response: "Here is the updated persona:\n```json\n" + validResponse + "\n```\nLet me know if you need anything else."}
	merger, _, st := newMergeFixture(t, model)
	seed(t, st, "u1", store.Record{"user_id": "u1"})

	result := merger.Merge(context.Background(), "u1", conversation)

	if result.Outcome != MergeUpdated {
		t.Errorf("outcome = %v (reason %q), want MergeUpdated", result.Outcome, result.Reason)
	}
}

func TestMerge_ProseResponse(t *testing.T) {
	model := &mockModel{response: "I could not determine any persona changes from this conversation."}
	merger, _, st := newMergeFixture(t, model)
	seed(t, st, "u1", store.Record{"user_id": "u1", "risk_profile": "Moderate"})

	result := merger.Merge(context.Background(), "u1", conversation)

	if result.Outcome != MergeFailed {
		t.Errorf("outcome = %v, want MergeFailed", result.Outcome)
	}
	if result.Persona.String("risk_profile") != "Moderate" {
		t.Error("failed merge must return the current persona unchanged")
	}
}

func TestMerge_MissingRequiredField(t *testing.T) {
	model := &mockModel{response: `{"risk_profile": "Moderate", "investment_goals": [], "spending_pattern": {}, "financial_summary": {}}`}
	merger, _, st := newMergeFixture(t, model)
	seed(t, st, "u1", store.Record{"user_id": "u1", "risk_profile": "Moderate"})

	result := merger.Merge(context.Background(), "u1", conversation)

	if result.Outcome != MergeFailed {
		t.Errorf("outcome = %v, want MergeFailed", result.Outcome)
	}
	if !strings.Contains(result.Reason, "personal_context") {
		t.Errorf("reason = %q, want mention of the missing field", result.Reason)
	}
}

func TestMerge_ModelFailure(t *testing.T) {
	model := &mockModel{err: errors.New("deadline exceeded")}
	merger, personas, st := newMergeFixture(t, model)
	seed(t, st, "u1", store.Record{"user_id": "u1", "risk_profile": "Moderate"})

	result := merger.Merge(context.Background(), "u1", conversation)

	if result.Outcome != MergeFailed {
		t.Errorf("outcome = %v, want MergeFailed", result.Outcome)
	}

	stored, err := personas.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get after failed merge: %v", err)
	}
	if stored.String("risk_profile") != "Moderate" {
		t.Error("persona changed despite model failure")
	}
}

func TestMerge_ExistingNameRetained(t *testing.T) {
	model := &mockModel{response: validResponse}
	merger, _, st := newMergeFixture(t, model)
	seed(t, st, "u1", store.Record{
		"user_id":   "u1",
		"firstName": "Asha",
	})

	result := merger.Merge(context.Background(), "u1", conversation)

	if result.Outcome != MergeUpdated {
		t.Fatalf("outcome = %v (reason %q), want MergeUpdated", result.Outcome, result.Reason)
	}
	if got := result.Persona.String("firstName"); got != "Asha" {
		t.Errorf("firstName = %q, existing name must be retained", got)
	}
	if got := result.Persona.String("lastName"); got != "Verma" {
		t.Errorf("lastName = %q, empty name must be adopted", got)
	}
}

func TestParsePersonaResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"bare object", `{"a": 1}`, false},
		{"fenced json", "```json\n{\"a\": 1}\n```", false},
		{"fenced without language", "```\n{\"a\": 1}\n```", false},
		{"fenced with surrounding prose", "Sure:\n```json\n{\"a\": 1}\n```\nDone.", false},
		{"plain prose", "no json here", true},
		{"fenced garbage", "```json\nnot json\n```", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePersonaResponse(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Errorf("parsePersonaResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
