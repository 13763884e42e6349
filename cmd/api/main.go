package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/credvoice/persona-service/internal/api/handlers"
	"github.com/credvoice/persona-service/internal/api/middleware"
	"github.com/credvoice/persona-service/internal/archive"
	"github.com/credvoice/persona-service/internal/auth"
	"github.com/credvoice/persona-service/internal/cache"
	cacheinmemory "github.com/credvoice/persona-service/internal/cache/inmemory"
	cacheredis "github.com/credvoice/persona-service/internal/cache/redis"
	"github.com/credvoice/persona-service/internal/interaction"
	"github.com/credvoice/persona-service/internal/logger"
	"github.com/credvoice/persona-service/internal/persona"
	"github.com/credvoice/persona-service/internal/statement"
	"github.com/credvoice/persona-service/internal/store/sqlite"
	"github.com/credvoice/persona-service/internal/transactions"
	"github.com/credvoice/persona-service/internal/transcript"
)

func main() {
	// Parse command-line flags
	var (
		port      = flag.String("port", envOr("PORT", "8080"), "HTTP server port")
		dbPath    = flag.String("db", envOr("PERSONA_DB", "persona.db"), "SQLite database path (or set PERSONA_DB env)")
		redisAddr = flag.String("redis", os.Getenv("REDIS_ADDR"), "Redis address for the persona cache (or set REDIS_ADDR env; empty uses in-process cache)")
		bucket    = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for raw statement archive (or set GCS_BUCKET env; empty disables archiving)")
		jwtSecret = flag.String("jwt-secret", os.Getenv("JWT_SECRET"), "Secret for signing access tokens (or set JWT_SECRET env)")
		modelName = flag.String("model", envOr("GEMINI_MODEL", transcript.DefaultModelName), "Gemini model for persona merges (or set GEMINI_MODEL env)")
		tokenTTL  = flag.Duration("token-ttl", 24*time.Hour, "Access token lifetime")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	if *jwtSecret == "" {
		log.Fatal().Msg("JWT secret is required - set JWT_SECRET or pass -jwt-secret")
	}

	ctx := context.Background()

	// Initialize durable store
	db, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *dbPath).Msg("Failed to open database")
	}
	defer db.Close()

	// Initialize persona cache
	var personaCache cache.Cache
	if *redisAddr != "" {
		redisCache, err := cacheredis.New(ctx, *redisAddr)
		if err != nil {
			log.Fatal().Err(err).Str("addr", *redisAddr).Msg("Failed to connect to Redis")
		}
		defer redisCache.Close()
		personaCache = redisCache
		log.Info().Str("addr", *redisAddr).Msg("Using Redis persona cache")
	} else {
		personaCache = cacheinmemory.New()
		log.Warn().Msg("No Redis configured - using in-process persona cache")
	}

	// Initialize services
	personas := persona.NewService(db, personaCache, log)
	users := auth.NewUsers(db, log)
	issuer := auth.NewTokenIssuer(*jwtSecret, *tokenTTL)
	ingestor := statement.NewIngestor(db, personas, log)
	txns := transactions.NewService(db)

	var model transcript.Model
	geminiModel, err := transcript.NewGeminiModel(ctx, *modelName, transcript.DefaultModelTimeout)
	if err != nil {
		log.Warn().Err(err).Msg("Gemini model unavailable - persona merges will degrade")
		model = unavailableModel{}
	} else {
		model = geminiModel
	}

	merger := transcript.NewMerger(personas, model, log)
	interactions := interaction.NewService(db, merger, log)

	var archiver handlers.Archiver
	if *bucket != "" {
		gcsArchive, err := archive.New(ctx, *bucket, log)
		if err != nil {
			log.Fatal().Err(err).Str("bucket", *bucket).Msg("Failed to create statement archive")
		}
		defer gcsArchive.Close()
		archiver = gcsArchive
	} else {
		log.Warn().Msg("No GCS bucket configured - statement archiving is disabled")
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(users, issuer, log)
	usersHandler := handlers.NewUsersHandler(personas, log)
	personaHandler := handlers.NewPersonaHandler(personas, log)
	statementsHandler := handlers.NewStatementsHandler(ingestor, archiver, log)
	transactionsHandler := handlers.NewTransactionsHandler(txns, log)
	interactionsHandler := handlers.NewInteractionsHandler(interactions, log)

	protected := middleware.Auth(issuer)

	// Create router
	mux := http.NewServeMux()

	// Auth endpoints (public)
	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			authHandler.Register(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			authHandler.Login(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// User endpoints
	mux.Handle("/api/users/me", protected(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			usersHandler.Me(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	// Persona endpoints
	mux.Handle("/api/persona", protected(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			personaHandler.GetPersona(w, r)
		case http.MethodPost:
			personaHandler.UpdatePersona(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	// Statement endpoints
	mux.Handle("/api/statements/upload", protected(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			statementsHandler.Upload(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	// Transaction endpoints
	mux.Handle("/api/transactions", protected(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.ListTransactions(w, r)
		case http.MethodPost:
			transactionsHandler.UpsertTransaction(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	// Interaction endpoints
	mux.Handle("/api/interactions", protected(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			interactionsHandler.History(w, r)
		case http.MethodPost:
			interactionsHandler.SaveMessage(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	mux.Handle("/api/interactions/", protected(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/interactions/")
		if rest == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Interaction ID is required")
			return
		}

		if interactionID, ok := strings.CutSuffix(rest, "/transcript"); ok {
			if r.Method == http.MethodPost {
				interactionsHandler.SaveTranscript(w, r, interactionID)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
			return
		}

		if r.Method == http.MethodGet {
			interactionsHandler.Messages(w, r, rest)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// unavailableModel stands in when the Gemini client cannot be created.
// Merges attempted against it take the degraded path.
type unavailableModel struct{}

func (unavailableModel) Complete(context.Context, string, []transcript.ChatMessage, string) (string, error) {
	return "", errors.New("model unavailable")
}
