package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/vaultcode-ai/vaultcode/internal/askuser"
	"github.com/vaultcode-ai/vaultcode/internal/config"
	"github.com/vaultcode-ai/vaultcode/internal/logging"
	"github.com/vaultcode-ai/vaultcode/internal/permission"
	"github.com/vaultcode-ai/vaultcode/internal/session"
)

// Config holds server configuration.
type Config struct {
	Addr         string
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:         "127.0.0.1:4517",
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No write timeout for SSE
	}
}

// Deps are the collaborators the handlers dispatch into.
type Deps struct {
	Controller *session.Controller
	Responder  *permission.Responder
	Asker      *askuser.Asker
	Settings   *config.SettingsStore
}

// Server is the HTTP server.
type Server struct {
	config     *Config
	router     *chi.Mux
	httpSrv    *http.Server
	controller *session.Controller
	responder  *permission.Responder
	asker      *askuser.Asker
	settings   *config.SettingsStore
	log        zerolog.Logger
}

// New creates a new Server instance.
func New(cfg *Config, deps Deps) *Server {
	s := &Server{
		config:     cfg,
		router:     chi.NewRouter(),
		controller: deps.Controller,
		responder:  deps.Responder,
		asker:      deps.Asker,
		settings:   deps.Settings,
		log:        logging.ForService("server"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		// The Obsidian renderer runs on app:// origins, so the allowlist
		// stays open; the server binds to loopback.
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Info().Str("addr", s.config.Addr).Msg("server listening")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
