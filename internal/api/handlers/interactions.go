package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/credvoice/persona-service/internal/api/middleware"
	"github.com/credvoice/persona-service/internal/domain"
	"github.com/credvoice/persona-service/internal/interaction"
)

// InteractionsHandler handles conversation history endpoints.
type InteractionsHandler struct {
	service *interaction.Service
	log     zerolog.Logger
}

// NewInteractionsHandler creates a new interactions handler.
func NewInteractionsHandler(service *interaction.Service, log zerolog.Logger) *InteractionsHandler {
	return &InteractionsHandler{
		service: service,
		log:     log,
	}
}

// History handles GET /api/interactions
func (h *InteractionsHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	records, err := h.service.History(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load interaction history")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load interaction history")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": records,
		"count":    len(records),
	})
}

// Messages handles GET /api/interactions/{id}
func (h *InteractionsHandler) Messages(w http.ResponseWriter, r *http.Request, interactionID string) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	records, err := h.service.Messages(r.Context(), userID, interactionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Interaction not found")
			return
		}
		h.log.Error().Err(err).Str("interaction_id", interactionID).Msg("Failed to load interaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load interaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"interaction_id": interactionID,
		"messages":       records,
		"count":          len(records),
	})
}

// SaveMessage handles POST /api/interactions
func (h *InteractionsHandler) SaveMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var msg domain.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if msg.Role == "" || msg.Content == "" {
		middleware.WriteError(w, http.StatusBadRequest, "role and content are required")
		return
	}

	rec, err := h.service.SaveMessage(r.Context(), userID, msg)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to save message")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save message")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, rec)
}

// SaveTranscript handles POST /api/interactions/{id}/transcript
func (h *InteractionsHandler) SaveTranscript(w http.ResponseWriter, r *http.Request, interactionID string) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req struct {
		Items []interaction.TimelineItem `json:"items"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, result, err := h.service.SaveTranscript(r.Context(), userID, interactionID, req.Items)
	if err != nil {
		h.log.Error().Err(err).Str("interaction_id", interactionID).Msg("Failed to save transcript")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save transcript")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"interaction_id": interactionID,
		"saved":          saved,
		"merge_outcome":  result.Outcome.String(),
	})
}
