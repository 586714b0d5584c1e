// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the wiring layer. It decides:
// - which store backs the app (Postgres when DATABASE_URL is set, else SQLite)
// - which URL patterns map to which handler functions
// - what middleware runs on which routes
// - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	store (sqlite.DB | postgres.Store)
//	  → identity.Local → session.Manager ─┐
//	  → service.TripService ──────────────┼→ handlers → router
//	completion.Completer → service.Planner┘
//
// This is the composition root: every dependency is built here and passed
// down, nothing below reaches for globals.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/dreamways/internal/auth"
	"github.com/sakif/dreamways/internal/completion"
	"github.com/sakif/dreamways/internal/config"
	"github.com/sakif/dreamways/internal/handler"
	"github.com/sakif/dreamways/internal/identity"
	"github.com/sakif/dreamways/internal/middleware"
	"github.com/sakif/dreamways/internal/repository"
	"github.com/sakif/dreamways/internal/repository/postgres"
	sqliteRepo "github.com/sakif/dreamways/internal/repository/sqlite"
	"github.com/sakif/dreamways/internal/service"
	"github.com/sakif/dreamways/internal/session"
	"github.com/sakif/dreamways/web"
)

const (
	shutdownTimeout = 30 * time.Second
	healthTimeout   = 2 * time.Second
	// writeSlack is added to the completion timeout so a slow generation
	// still gets its response written.
	writeSlack = 15 * time.Second
)

// Server represents the HTTP server and everything it owns.
//
// RESOURCE MANAGEMENT:
// The Server owns the store and the session manager. Close releases both;
// Start calls it after the HTTP listener has drained.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	store    repository.Store
	sessions *session.Manager
}

// New builds the store, the services and the router.
func New(ctx context.Context, cfg *config.Config, completer completion.Completer, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("server: token service: %w", err)
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	ids := identity.NewLocal(store, auth.NewPasswordService(), logger)
	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		store:    store,
		sessions: session.NewManager(ids, tokens, logger),
	}

	if err := s.setupRoutes(completer); err != nil {
		s.Close()
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}
	return s, nil
}

// openStore picks the backend. Both run their migrations on open.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	if cfg.DatabaseURL != "" {
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("server: opening postgres: %w", err)
		}
		logger.Info("using postgres store")
		return store, nil
	}

	store, err := sqliteRepo.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("server: opening sqlite: %w", err)
	}
	logger.Info("using sqlite store", slog.String("path", cfg.DBPath))
	return store, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                   → liveness (pings the store)
//	GET    /static/*                  → embedded CSS
//	POST   /generate-trip             → itinerary (JSON)
//	GET    /, /login, /register       → pages
//	POST   /login, /register, /logout → form actions
//	GET    /trip-planner              → planner (protected)
//	POST   /trip-planner              → generate, 303 → /trip-results
//	GET    /trip-results              → results (protected)
//	POST   /trip-results              → save, 303 → /saved-trips
//	GET    /saved-trips               → saved list (protected)
//	POST   /saved-trips/{id}/delete   → delete, 303 → /saved-trips
//	GET    /auth/github/login         → OAuth (when configured)
//	GET    /auth/github/callback      → OAuth (when configured)
//	GET    /api/me, DELETE /api/me    → account (JSON, auth required)
//	GET    /api/trips, POST /api/trips, DELETE /api/trips/{id}
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (the logger prints it)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info
// 4. Recoverer: catches panics and returns 500 instead of crashing
// 5. CORS: before routing, so preflights reach it on any path
func (s *Server) setupRoutes(completer completion.Completer) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(s.config.CORSOrigins))

	planner := service.NewPlanner(completer, s.logger)
	trips := service.NewTripService(s.store, s.logger)

	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}

	pages, err := handler.NewPagesHandler(s.sessions, trips, planner, handler.PagesConfig{
		SecureCookies: s.config.SecureCookies,
		GitHubEnabled: github != nil,
	}, s.logger)
	if err != nil {
		return err
	}
	generate := handler.NewGenerateHandler(planner, s.logger)
	authHandler := handler.NewAuthHandler(github, s.sessions, s.config.SecureCookies, s.logger)
	tripsHandler := handler.NewTripsHandler(trips, s.logger)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/static/*", http.FileServerFS(web.FS))
	s.router.Post("/generate-trip", generate.HandleGenerate)

	// === Pages ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(s.sessions))

		r.Get("/", pages.HandleLanding)
		r.Get("/login", pages.HandleLoginPage)
		r.Post("/login", pages.HandleLogin)
		r.Get("/register", pages.HandleRegisterPage)
		r.Post("/register", pages.HandleRegister)
		r.Post("/logout", pages.HandleLogout)

		r.Get("/trip-planner", pages.HandlePlannerPage)
		r.Post("/trip-planner", pages.HandlePlan)
		r.Get("/trip-results", pages.HandleResultsPage)
		r.Post("/trip-results", pages.HandleSave)
		r.Get("/saved-trips", pages.HandleSavedPage)
		r.Post("/saved-trips/{id}/delete", pages.HandleDelete)
	})

	// === GitHub OAuth ===
	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}

	// === JSON API ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(s.sessions))

		r.Get("/me", authHandler.HandleMe)
		r.Delete("/me", authHandler.HandleDeleteAccount)
		r.Get("/trips", tripsHandler.HandleList)
		r.Post("/trips", tripsHandler.HandleCreate)
		r.Delete("/trips/{id}", tripsHandler.HandleDelete)
	})

	return nil
}

// handleHealth answers 200 while the store responds.
//
// HTTP: GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close unsubscribes the session manager and closes the store.
func (s *Server) Close() {
	s.sessions.Close()
	if err := s.store.Close(); err != nil {
		s.logger.Error("closing store", slog.String("error", err.Error()))
	}
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the session manager and the store
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.config.CompletionTimeout + writeSlack,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.Bool("github", s.config.GitHubEnabled()),
			slog.Bool("generation", s.config.CompletionEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
