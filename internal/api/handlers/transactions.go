package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/credvoice/persona-service/internal/api/middleware"
	"github.com/credvoice/persona-service/internal/domain"
	"github.com/credvoice/persona-service/internal/transactions"
)

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	service *transactions.Service
	log     zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(service *transactions.Service, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		service: service,
		log:     log,
	}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	records, err := h.service.List(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "No transactions found")
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": records,
		"count":        len(records),
	})
}

// UpsertTransaction handles POST /api/transactions
func (h *TransactionsHandler) UpsertTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fields["transaction_id"] == nil || fields["transaction_id"] == "" {
		middleware.WriteError(w, http.StatusBadRequest, "transaction_id is required")
		return
	}

	rec, err := h.service.Upsert(r.Context(), userID, fields)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to upsert transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upsert transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, rec)
}
