// Package interaction persists conversation messages and triggers
// transcript-driven persona merges. An interaction is not a record of its
// own: it is the set of messages whose sort keys share an interaction_id
// prefix.
package interaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/credvoice/persona-service/internal/domain"
	"github.com/credvoice/persona-service/internal/store"
	"github.com/credvoice/persona-service/internal/transcript"
)

// TimelineItem is one entry of a saved transcript. Only items tagged as
// messages are persisted; anything else on the timeline (tool calls,
// breadcrumbs) is skipped.
type TimelineItem struct {
	ItemID    string `json:"itemId"`
	Type      string `json:"type"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// ItemTypeMessage tags timeline items that carry a conversation message.
const ItemTypeMessage = "MESSAGE"

// PersonaMerger is the slice of the transcript merger the service needs.
type PersonaMerger interface {
	Merge(ctx context.Context, userID string, messages []transcript.ChatMessage) transcript.MergeResult
}

// Service owns the interaction history.
type Service struct {
	store  store.Store
	merger PersonaMerger
	log    zerolog.Logger

	// now is a hook for tests to pin timestamps.
	now func() time.Time
}

// NewService creates an interaction service.
func NewService(s store.Store, merger PersonaMerger, log zerolog.Logger) *Service {
	return &Service{
		store:  s,
		merger: merger,
		log:    log,
		now:    time.Now,
	}
}

// SaveMessage persists one conversation message. Missing interaction and
// message ids are generated; the sort key is the interaction id joined with
// the message's creation time, which keeps a conversation's messages
// contiguous and ordered under a prefix query.
func (s *Service) SaveMessage(ctx context.Context, userID string, msg domain.Message) (store.Record, error) {
	if msg.InteractionID == "" {
		msg.InteractionID = uuid.New().String()
	}
	if msg.MessageID == "" {
		msg.MessageID = uuid.New().String()
	}
	if msg.CreatedAt == "" {
		msg.CreatedAt = s.now().Format(domain.TimestampLayout)
	}

	sortID := fmt.Sprintf("%s#%s", msg.InteractionID, msg.CreatedAt)
	rec := messageRecord(userID, sortID, msg)

	if err := s.store.PutItem(ctx, store.TableInteractions, userID, sortID, rec); err != nil {
		return nil, fmt.Errorf("interaction: save message: %w", err)
	}
	return rec, nil
}

// History returns every message the user has, across all interactions,
// ordered by sort key. Absence is an empty slice, not an error.
func (s *Service) History(ctx context.Context, userID string) ([]store.Record, error) {
	records, err := s.store.QueryByPrefix(ctx, store.TableInteractions, userID, "")
	if err != nil {
		return nil, fmt.Errorf("interaction: history for %s: %w", userID, err)
	}
	return records, nil
}

// Messages returns one interaction's messages in order. It reports
// domain.ErrNotFound when the interaction has no messages.
func (s *Service) Messages(ctx context.Context, userID, interactionID string) ([]store.Record, error) {
	records, err := s.store.QueryByPrefix(ctx, store.TableInteractions, userID, interactionID+"#")
	if err != nil {
		return nil, fmt.Errorf("interaction: messages for %s: %w", interactionID, err)
	}
	if len(records) == 0 {
		return nil, domain.ErrNotFound
	}
	return records, nil
}

// SaveTranscript persists a transcript's message items and then asks the
// merger to fold the conversation into the persona. The save succeeds even
// when the merge degrades; the merge result is returned so the caller can
// report it if it wants to.
func (s *Service) SaveTranscript(ctx context.Context, userID, interactionID string, items []TimelineItem) (int, transcript.MergeResult, error) {
	if interactionID == "" {
		interactionID = uuid.New().String()
	}

	var chat []transcript.ChatMessage
	saved := 0
	for i, item := range items {
		if item.Type != ItemTypeMessage || item.ItemID == "" || item.Role == "" || item.Content == "" {
			continue
		}

		createdAt := item.CreatedAt
		if createdAt == "" {
			createdAt = s.now().Format(domain.TimestampLayout)
		}

		// The index suffix keeps same-second messages in transcript order.
		sortID := fmt.Sprintf("%s#%s#%03d", interactionID, createdAt, i)
		rec := messageRecord(userID, sortID, domain.Message{
			InteractionID: interactionID,
			MessageID:     item.ItemID,
			Role:          item.Role,
			Content:       item.Content,
			CreatedAt:     createdAt,
		})
		if err := s.store.PutItem(ctx, store.TableInteractions, userID, sortID, rec); err != nil {
			return saved, transcript.MergeResult{Outcome: transcript.MergeFailed, Reason: "transcript save aborted"}, fmt.Errorf("interaction: save transcript item %s: %w", item.ItemID, err)
		}
		saved++

		chat = append(chat, transcript.ChatMessage{Role: item.Role, Content: item.Content})
	}

	result := s.merger.Merge(ctx, userID, chat)
	if result.Outcome == transcript.MergeFailed {
		s.log.Warn().
			Str("user_id", userID).
			Str("interaction_id", interactionID).
			Str("reason", result.Reason).
			Msg("Transcript saved but persona merge degraded")
	}

	return saved, result, nil
}

func messageRecord(userID, sortID string, msg domain.Message) store.Record {
	return store.Record{
		"user_id":        userID,
		"sort_id":        sortID,
		"interaction_id": msg.InteractionID,
		"message_id":     msg.MessageID,
		"role":           msg.Role,
		"content":        msg.Content,
		"created_at":     msg.CreatedAt,
		"updated_at":     msg.CreatedAt,
	}
}
