package domain

import "fmt"

// Persona field names as stored. The persona record itself travels as a
// generic keyed record (see store.Record) because it round-trips JSON
// through the cache and the language model; these constants and
// PersonaFields keep the update path typed against the schema.
const (
	FieldUserID           = "user_id"
	FieldFirstName        = "firstName"
	FieldLastName         = "lastName"
	FieldUsername         = "username"
	FieldEmail            = "email"
	FieldPassword         = "password"
	FieldRiskProfile      = "risk_profile"
	FieldInvestmentGoals  = "investment_goals"
	FieldSpendingPattern  = "spending_pattern"
	FieldFinancialSummary = "financial_summary"
	FieldPersonalContext  = "personal_context"
	FieldCreatedAt        = "created_at"
	FieldUpdatedAt        = "updated_at"
)

// DefaultRiskProfile is assigned to newly registered users until a
// statement upload or conversation refines it.
const DefaultRiskProfile = "moderate"

// personaSchema is the set of persona fields a partial update may carry.
// Key fields (user_id) and timestamps are owned by the store and are not
// updatable through PersonaFields.
var personaSchema = map[string]bool{
	FieldFirstName:        true,
	FieldLastName:         true,
	FieldUsername:         true,
	FieldEmail:            true,
	FieldPassword:         true,
	FieldRiskProfile:      true,
	FieldInvestmentGoals:  true,
	FieldSpendingPattern:  true,
	FieldFinancialSummary: true,
	FieldPersonalContext:  true,
}

// PersonaFields is a partial persona update: the named fields to merge into
// the stored record. Fields absent from the map are left untouched in
// durable storage.
type PersonaFields map[string]any

// Validate rejects updates that carry fields outside the persona schema.
func (f PersonaFields) Validate() error {
	for name := range f {
		if !personaSchema[name] {
			return fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
	}
	return nil
}

// InvestmentGoal is one entry of a persona's investment_goals list.
type InvestmentGoal struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	TargetAmount float64 `json:"targetAmount"`
	TargetDate   string  `json:"targetDate"`
	Priority     string  `json:"priority"`
	Progress     float64 `json:"progress"`
}
