// Package server provides the HTTP server and routing for the fund simulator.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/database"
	cataloghandlers "github.com/quantply/fundsim/internal/modules/catalog/handlers"
	ledgerhandlers "github.com/quantply/fundsim/internal/modules/ledger/handlers"
	performancehandlers "github.com/quantply/fundsim/internal/modules/performance/handlers"
	statshandlers "github.com/quantply/fundsim/internal/modules/stats/handlers"
	strategyhandlers "github.com/quantply/fundsim/internal/modules/strategy/handlers"
	valuationhandlers "github.com/quantply/fundsim/internal/modules/valuation/handlers"
)

// Config holds server configuration
type Config struct {
	Port      int
	DevMode   bool
	DataDir   string
	Databases []*database.DB
	Log       zerolog.Logger

	Catalog     *cataloghandlers.Handler
	Ledger      *ledgerhandlers.Handler
	Valuation   *valuationhandlers.Handler
	Performance *performancehandlers.Handler
	Strategy    *strategyhandlers.Handler
	Stats       *statshandlers.Handler
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    Config
	system *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
		system: NewSystemHandlers(cfg.Databases, cfg.DataDir, cfg.Log),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.cfg.DevMode {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.system.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/system/status", s.system.HandleSystemStatus)

		s.cfg.Catalog.RegisterRoutes(r)
		s.cfg.Ledger.RegisterRoutes(r)
		s.cfg.Valuation.RegisterRoutes(r)
		s.cfg.Performance.RegisterRoutes(r)
		s.cfg.Strategy.RegisterRoutes(r)
		s.cfg.Stats.RegisterRoutes(r)
	})
}

// Start begins listening for HTTP requests, blocking until shutdown
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}
