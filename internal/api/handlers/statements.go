package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/credvoice/persona-service/internal/api/middleware"
	"github.com/credvoice/persona-service/internal/domain"
	"github.com/credvoice/persona-service/internal/statement"
)

// maxStatementBytes caps statement uploads at 10 MiB.
const maxStatementBytes = 10 << 20

// Archiver stores a copy of the raw uploaded statement. Archiving is
// best-effort; ingestion does not depend on it.
type Archiver interface {
	Save(ctx context.Context, userID, filename string, data []byte) (string, error)
}

// StatementsHandler handles bank statement uploads.
type StatementsHandler struct {
	ingestor *statement.Ingestor
	archiver Archiver
	log      zerolog.Logger
}

// NewStatementsHandler creates a new statements handler. archiver may be
// nil when no archive bucket is configured.
func NewStatementsHandler(ingestor *statement.Ingestor, archiver Archiver, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{
		ingestor: ingestor,
		archiver: archiver,
		log:      log,
	}
}

// Upload handles POST /api/statements/upload
func (h *StatementsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if err := r.ParseMultipartForm(maxStatementBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		middleware.WriteError(w, http.StatusBadRequest, "Only .xlsx statements are supported")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxStatementBytes))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read statement upload")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}

	if h.archiver != nil {
		uri, err := h.archiver.Save(r.Context(), userID, header.Filename, data)
		if err != nil {
			h.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to archive statement")
		} else {
			h.log.Info().Str("user_id", userID).Str("uri", uri).Msg("Statement archived")
		}
	}

	summary, err := h.ingestor.Ingest(r.Context(), userID, bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, domain.ErrMalformedStatement) {
			middleware.WriteError(w, http.StatusBadRequest, "Malformed bank statement")
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to ingest statement")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to ingest statement")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"filename":          header.Filename,
		"financial_summary": summary,
	})
}
