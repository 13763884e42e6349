package domain

// TimestampLayout is the wall-clock format used for created_at/updated_at
// fields and the timestamp half of interaction sort keys.
const TimestampLayout = "2006-01-02 15:04:05"

// Message roles as they appear in interaction records.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation message inside an interaction. An interaction
// has no record of its own; it is the set of messages sharing an
// interaction_id prefix in their sort key. Messages are never mutated after
// they are written.
type Message struct {
	InteractionID string `json:"interaction_id"`
	MessageID     string `json:"message_id"`
	Role          string `json:"role"`
	Content       string `json:"content"`
	CreatedAt     string `json:"created_at"`
}
