// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the wiring layer. It connects handlers, middleware and
// routes, owns the database handle, and runs the background jobs (presence
// reaper, rate limiter cleanup) for as long as the HTTP server is up.
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go: config.Load → sqlstore.New → server.New → Start
//	server.New: sqlstore.DB → services → handlers → routes
//
// Every repository interface is satisfied by the same *sqlstore.DB, so the
// services never see which database is behind them.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/snippet-vault/internal/auth"
	"github.com/sakif/snippet-vault/internal/config"
	"github.com/sakif/snippet-vault/internal/handler"
	"github.com/sakif/snippet-vault/internal/middleware"
	"github.com/sakif/snippet-vault/internal/repository/sqlstore"
	"github.com/sakif/snippet-vault/internal/service"
)

// limiterCleanupInterval is how often idle rate limiter buckets are dropped.
const limiterCleanupInterval = time.Minute

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it after the HTTP
// server and the background jobs have stopped.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqlstore.DB

	reaper       *service.PresenceReaper // nil when PRESENCE_REAP_INTERVAL is 0
	shareLimiter *middleware.RateLimiter
	loginLimiter *middleware.RateLimiter
}

// New assembles services and handlers on top of db and registers routes.
// The GitHub routes are only registered when the client ID and secret are
// configured.
func New(cfg *config.Config, db *sqlstore.DB, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router:       chi.NewRouter(),
		config:       cfg,
		logger:       logger,
		db:           db,
		shareLimiter: middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		loginLimiter: middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	}
	s.setupRoutes(tokens)

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                     → database ping
//	POST   /auth/register|login|logout  → accounts (login is rate limited)
//	GET    /auth/github/login|callback  → GitHub OAuth (when configured)
//	GET    /share-links/{token}         → public share resolution (rate limited)
//	GET    /api/snippets[/{id}]         → optional auth
//	GET    /api/collections/{id}        → optional auth
//	everything else under /api, /share-links, /collaboration → auth required
//
// MIDDLEWARE ORDER MATTERS:
// RequestID first so the logger can report it, RealIP before anything keyed
// on the client address, Recoverer inside the logger so a recovered panic is
// still logged as a 500, then CORS.
func (s *Server) setupRoutes(tokens *auth.TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// === Services ===
	db := s.db
	accounts := service.NewAuthService(db, tokens, auth.NewPasswordService(s.config.Auth.BcryptCost), s.logger)
	snippets := service.NewSnippetService(db, db, db, s.logger)
	categories := service.NewCategoryService(db, s.logger)
	collections := service.NewCollectionService(db, db, s.logger)
	favorites := service.NewFavoriteService(db, db, s.logger)
	links := service.NewShareLinkService(db, db, db, s.config.Server.BaseURL, s.logger)
	presence := service.NewCollaborationService(db, db, s.logger)

	if s.config.Presence.ReapInterval > 0 {
		s.reaper = service.NewPresenceReaper(presence, s.config.Presence.ReapInterval, s.config.Presence.Retention, s.logger)
	}

	// === Handlers ===
	var github handler.GitHubProvider
	if s.config.Auth.GitHubEnabled() {
		github = auth.NewGitHubProvider(
			s.config.Auth.GitHubClientID,
			s.config.Auth.GitHubClientSecret,
			s.githubCallbackURL(),
		)
	}
	secureCookies := s.config.App.IsProduction() || strings.HasPrefix(s.config.Server.BaseURL, "https://")

	authH := handler.NewAuthHandler(accounts, github, tokens, secureCookies, s.logger)
	snippetH := handler.NewSnippetHandler(snippets, s.logger)
	catalogH := handler.NewCatalogHandler(categories, collections, favorites, s.logger)
	shareH := handler.NewShareLinkHandler(links, s.logger)
	collabH := handler.NewCollaborationHandler(presence, s.logger)
	healthH := handler.NewHealthHandler(db, s.logger)

	// === Public routes ===
	s.router.Get("/healthz", healthH.HandleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authH.HandleRegister)
		r.With(middleware.RateLimit(s.loginLimiter, s.logger)).Post("/login", authH.HandleLogin)
		r.Post("/logout", authH.HandleLogout)
		if github != nil {
			r.Get("/github/login", authH.HandleGitHubLogin)
			r.Get("/github/callback", authH.HandleGitHubCallback)
		}
	})

	// Anyone holding a token may resolve it, so it is the one share route
	// without auth.
	s.router.With(middleware.RateLimit(s.shareLimiter, s.logger)).
		Get("/share-links/{token}", shareH.HandleResolve)

	// === Routes that work signed in or not ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		r.Get("/api/snippets", snippetH.HandleList)
		r.Get("/api/snippets/{id}", snippetH.HandleGetByID)
		r.Get("/api/collections/{id}", catalogH.HandleGetCollection)
	})

	// === Signed-in routes ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/api/me", authH.HandleMe)
		r.Put("/api/me", authH.HandleUpdateMe)

		r.Post("/api/snippets", snippetH.HandleCreate)
		r.Put("/api/snippets/{id}", snippetH.HandleUpdate)
		r.Delete("/api/snippets/{id}", snippetH.HandleDelete)

		r.Get("/api/categories", catalogH.HandleListCategories)
		r.Post("/api/categories", catalogH.HandleCreateCategory)
		r.Put("/api/categories/{id}", catalogH.HandleUpdateCategory)
		r.Delete("/api/categories/{id}", catalogH.HandleDeleteCategory)

		r.Get("/api/collections", catalogH.HandleListCollections)
		r.Post("/api/collections", catalogH.HandleCreateCollection)
		r.Put("/api/collections/{id}", catalogH.HandleUpdateCollection)
		r.Delete("/api/collections/{id}", catalogH.HandleDeleteCollection)

		r.Get("/api/favorites", catalogH.HandleListFavorites)
		r.Post("/api/favorites", catalogH.HandleAddFavorite)
		r.Delete("/api/favorites/{snippetId}", catalogH.HandleRemoveFavorite)

		r.Post("/share-links", shareH.HandleIssue)
		r.Get("/share-links", shareH.HandleList)
		r.Delete("/share-links", shareH.HandleRevoke)

		r.Post("/collaboration/join", collabH.HandleJoin)
		r.Post("/collaboration/update", collabH.HandleUpdate)
		r.Delete("/collaboration/leave", collabH.HandleLeave)
		r.Get("/collaboration/sessions", collabH.HandleSessions)
	})
}

func (s *Server) githubCallbackURL() string {
	if s.config.Auth.GitHubCallbackURL != "" {
		return s.config.Auth.GitHubCallbackURL
	}
	return strings.TrimRight(s.config.Server.BaseURL, "/") + "/auth/github/callback"
}

// runBackground starts the reaper and limiter cleanup. They stop when ctx
// is cancelled; wg tracks them.
func (s *Server) runBackground(ctx context.Context, wg *sync.WaitGroup) {
	if s.reaper != nil {
		wg.Go(func() { s.reaper.Run(ctx) })
	}
	wg.Go(func() { s.shareLimiter.Run(ctx, limiterCleanupInterval) })
	wg.Go(func() { s.loginLimiter.Run(ctx, limiterCleanupInterval) })
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (SERVER_SHUTDOWN_TIMEOUT)
//  3. Stop the background jobs and wait for them
//  4. Close the database connection
//
// The deferred calls run in reverse order, so the database is closed last.
func (s *Server) Start() error {
	defer s.db.Close()

	var wg sync.WaitGroup
	defer wg.Wait()

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	s.runBackground(bgCtx, &wg)

	cfg := s.config.Server
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", cfg.Port),
			slog.String("url", cfg.BaseURL),
			slog.String("database", string(s.db.Dialect())),
			slog.Bool("github", s.config.Auth.GitHubEnabled()),
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

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
