package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/credvoice/persona-service/internal/api/middleware"
	"github.com/credvoice/persona-service/internal/domain"
	"github.com/credvoice/persona-service/internal/persona"
)

// PersonaHandler handles persona read and update endpoints.
type PersonaHandler struct {
	personas *persona.Service
	log      zerolog.Logger
}

// NewPersonaHandler creates a new persona handler.
func NewPersonaHandler(personas *persona.Service, log zerolog.Logger) *PersonaHandler {
	return &PersonaHandler{
		personas: personas,
		log:      log,
	}
}

// GetPersona handles GET /api/persona
func (h *PersonaHandler) GetPersona(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	rec, err := h.personas.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Persona not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get persona")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get persona")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, rec)
}

// UpdatePersona handles POST /api/persona
func (h *PersonaHandler) UpdatePersona(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var fields domain.PersonaFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.personas.Upsert(r.Context(), userID, fields)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownField) {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to update persona")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update persona")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, rec)
}
