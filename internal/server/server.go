// Package server is the composition root: it builds the store, the oracle
// stack and the services from config, mounts them on a chi router and runs
// the HTTP server until shutdown.
//
//	config ─▶ store (sqlite | postgres | memory)
//	       ─▶ oracles (OpenAI | Anthropic | Local) ─▶ Guard (timeout + breaker)
//	       ─▶ services ─▶ handlers ─▶ routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/memory-journal/internal/auth"
	"github.com/sakif/memory-journal/internal/config"
	"github.com/sakif/memory-journal/internal/handler"
	"github.com/sakif/memory-journal/internal/insight"
	"github.com/sakif/memory-journal/internal/metrics"
	"github.com/sakif/memory-journal/internal/middleware"
	"github.com/sakif/memory-journal/internal/oracle"
	"github.com/sakif/memory-journal/internal/repository"
	"github.com/sakif/memory-journal/internal/repository/memstore"
	"github.com/sakif/memory-journal/internal/repository/sqldb"
	"github.com/sakif/memory-journal/internal/search"
	"github.com/sakif/memory-journal/internal/service"
	"github.com/sakif/memory-journal/internal/validate"
)

// Server owns the router and the store; Start closes the store on shutdown.
type Server struct {
	router  *chi.Mux
	cfg     *config.Config
	logger  *slog.Logger
	store   repository.Store
	metrics *metrics.Registry
}

// Oracles lets callers (tests, mostly) replace the providers config would
// pick. Nil fields fall back to the config-driven choice.
type Oracles struct {
	Embedder    oracle.Embedder
	Completer   oracle.Completer
	Transcriber oracle.Transcriber
}

// New opens the store and wires every route.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, override Oracles) (*Server, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.DBDriver, err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		cfg:     cfg,
		logger:  logger,
		store:   store,
		metrics: metrics.New(),
	}
	if err := s.setupRoutes(override); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverMemory:
		return memstore.New(), nil
	case config.DriverPostgres:
		return sqldb.OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		return sqldb.OpenSQLite(ctx, cfg.DBPath)
	}
}

// buildOracles picks providers from config. Without an OpenAI key the local
// hashing embedder keeps semantic search working and every completion or
// transcription reports "not configured", so callers take their fallbacks.
func (s *Server) buildOracles(override Oracles) *oracle.Guard {
	var (
		embedder    oracle.Embedder    = oracle.Local{}
		completer   oracle.Completer   = oracle.Local{}
		transcriber oracle.Transcriber = oracle.Local{}
	)
	if s.cfg.OpenAIAPIKey != "" {
		openai := oracle.NewOpenAI(oracle.OpenAIConfig{
			APIKey:             s.cfg.OpenAIAPIKey,
			BaseURL:            s.cfg.OpenAIBaseURL,
			EmbeddingModel:     s.cfg.EmbeddingModel,
			ChatModel:          s.cfg.ChatModel,
			TranscriptionModel: s.cfg.TranscriptionModel,
		})
		embedder, completer, transcriber = openai, openai, openai
	} else {
		s.logger.Warn("OPENAI_API_KEY not set: using the local embedder; completions and transcription are disabled")
	}
	if s.cfg.CompletionProvider == config.ProviderAnthropic {
		completer = oracle.NewAnthropic(s.cfg.AnthropicAPIKey, s.cfg.AnthropicModel)
	}

	if override.Embedder != nil {
		embedder = override.Embedder
	}
	if override.Completer != nil {
		completer = override.Completer
	}
	if override.Transcriber != nil {
		transcriber = override.Transcriber
	}

	guardCfg := oracle.DefaultGuardConfig()
	if s.cfg.UpstreamTimeout > 0 {
		guardCfg.Timeout = s.cfg.UpstreamTimeout
	}
	return oracle.NewGuard(embedder, completer, transcriber, guardCfg, s.metrics, s.logger)
}

// setupRoutes builds the dependency chain and mounts it.
//
// MIDDLEWARE ORDER: RequestID and RealIP first so the logger sees them,
// Recoverer inside the logger so panics are logged as 500s, metrics last so
// the route pattern is known when it reports.
func (s *Server) setupRoutes(override Oracles) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Metrics(s.metrics))

	// === Auth ===
	var tokens *auth.TokenService
	if s.cfg.AuthEnabled() {
		var err error
		tokens, err = auth.NewTokenService(s.cfg.JWTSecret, s.cfg.TokenTTL)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	} else {
		s.logger.Warn("JWT_SECRET not set: authentication is disabled and request user ids are trusted")
	}
	authn := auth.NewAuthenticator(tokens)

	var github *auth.GitHubProvider
	if s.cfg.GitHubEnabled() {
		callback := s.cfg.GitHubCallbackURL
		if callback == "" {
			callback = fmt.Sprintf("http://localhost:%d/api/auth/github/callback", s.cfg.Port)
		}
		github = auth.NewGitHubProvider(s.cfg.GitHubClientID, s.cfg.GitHubClientSecret, callback)
	}

	// === Services ===
	validator := validate.New()
	guard := s.buildOracles(override)
	insights := insight.New(guard, guard, s.logger)

	accounts := service.NewAuthService(s.store, tokens, auth.NewPasswordService(), validator, s.logger)
	memories := service.NewMemoryService(s.store, insights, s.metrics, s.logger)
	sharing := service.NewSharingService(s.store, validator, s.cfg.PublicBaseURL, s.logger)
	prompts := service.NewPromptService(s.store, insights)
	engine := search.NewEngine(s.store, guard, guard, search.Config{
		CandidateLimit: s.cfg.SearchCandidateLimit,
		Concurrency:    s.cfg.SearchEmbedConcurrency,
		Threshold:      s.cfg.SearchThreshold,
		TopK:           s.cfg.SearchTopK,
	}, s.metrics, s.logger)

	// === Handlers ===
	identity := handler.NewIdentity(authn.Enabled(), s.store)
	authHandler := handler.NewAuthHandler(accounts, github, identity, validator, s.cfg.TokenTTL, s.logger)
	memoryHandler := handler.NewMemoryHandler(memories, engine, identity, validator, s.logger)
	sharingHandler := handler.NewSharingHandler(sharing, identity, validator, s.logger)
	promptHandler := handler.NewPromptHandler(prompts, insights, validator, s.logger)

	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(authn.OptionalAuth)

		r.Get("/health", handler.HandleHealth)

		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.With(authn.RequireAuth).Get("/auth/me", authHandler.HandleMe)
		if github != nil {
			r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
			r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		}

		r.Get("/users/{id}", authHandler.HandleGetUser)
		r.Put("/users/{id}", authHandler.HandleUpdateUser)

		r.Get("/memories", memoryHandler.HandleList)
		r.Post("/memories", memoryHandler.HandleCreate)
		r.Post("/memories/semantic-search", memoryHandler.HandleSemanticSearch)
		r.Get("/memories/{id}", memoryHandler.HandleGet)
		r.Put("/memories/{id}", memoryHandler.HandleUpdate)
		r.Delete("/memories/{id}", memoryHandler.HandleDelete)

		r.Post("/memories/{id}/share", sharingHandler.HandleShare)
		r.Post("/memories/{id}/share-with-user", sharingHandler.HandleShareWithUser)
		r.Get("/memories/{id}/shares", sharingHandler.HandleListShares)
		r.Patch("/memories/{id}/visibility", sharingHandler.HandleSetVisibility)
		r.Delete("/shares/{shareId}", sharingHandler.HandleRevoke)
		r.Get("/shared/{token}", sharingHandler.HandleResolve)
		r.Get("/shared-memories", sharingHandler.HandleSharedWithMe)

		r.Get("/prompts", promptHandler.HandleList)
		r.Get("/prompts/random", promptHandler.HandleRandom)
		r.Get("/prompts/categories", promptHandler.HandleCategories)
		r.Post("/prompts/generate", promptHandler.HandleGenerate)
		r.Post("/transcribe", promptHandler.HandleTranscribe)
	})

	return nil
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Close releases the store.
func (s *Server) Close() error { return s.store.Close() }

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the store.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute, // audio uploads
		WriteTimeout:      2 * time.Minute, // transcription and search wait on providers
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting", s.cfg.Redacted()...)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
