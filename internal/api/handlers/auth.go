package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/credvoice/persona-service/internal/api/middleware"
	"github.com/credvoice/persona-service/internal/auth"
	"github.com/credvoice/persona-service/internal/domain"
	"github.com/credvoice/persona-service/internal/persona"
)

// AuthHandler handles account registration and login.
type AuthHandler struct {
	users  *auth.Users
	issuer *auth.TokenIssuer
	log    zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users *auth.Users, issuer *auth.TokenIssuer, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		issuer: issuer,
		log:    log,
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		middleware.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	userID, err := h.users.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			middleware.WriteError(w, http.StatusConflict, "Email already registered")
			return
		}
		h.log.Error().Err(err).Msg("Failed to register user")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	token, err := h.issuer.Issue(userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to issue token")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]string{
		"user_id":      userID,
		"access_token": token,
		"token_type":   "bearer",
	})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			middleware.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.log.Error().Err(err).Msg("Failed to authenticate user")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to authenticate user")
		return
	}

	token, err := h.issuer.Issue(userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to issue token")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// UsersHandler handles endpoints about the authenticated user.
type UsersHandler struct {
	personas *persona.Service
	log      zerolog.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(personas *persona.Service, log zerolog.Logger) *UsersHandler {
	return &UsersHandler{
		personas: personas,
		log:      log,
	}
}

// Me handles GET /api/users/me
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	rec, err := h.personas.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load user")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, rec)
}
