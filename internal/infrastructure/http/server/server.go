// Package server provides the HTTP server for the conversation API
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/net/http2"

	appchat "github.com/huynhbao103/dietchat/internal/application/chat"
	"github.com/huynhbao103/dietchat/internal/infrastructure/config"
	"github.com/huynhbao103/dietchat/internal/infrastructure/http/handlers"
	"github.com/huynhbao103/dietchat/internal/infrastructure/http/middleware"
	"github.com/huynhbao103/dietchat/internal/infrastructure/monitoring"
	"github.com/huynhbao103/dietchat/internal/ports/outbound"
)

// Server represents the HTTP server
type Server struct {
	config       *config.Config
	logger       *zap.Logger
	router       *chi.Mux
	server       *http.Server
	orchestrator *appchat.Orchestrator
	store        outbound.ChatStore
	metrics      *monitoring.Metrics
}

// NewServer creates a new HTTP server instance
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	orchestrator *appchat.Orchestrator,
	store outbound.ChatStore,
	metrics *monitoring.Metrics,
) *Server {
	s := &Server{
		config:       cfg,
		logger:       logger,
		orchestrator: orchestrator,
		store:        store,
		metrics:      metrics,
	}

	s.router = s.setupRouter()

	readTimeout := cfg.Server.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	// The analysis phase can legitimately take tens of seconds, so the
	// write timeout stays generous.
	writeTimeout := cfg.Server.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 90 * time.Second
	}
	idleTimeout := cfg.Server.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 60 * time.Second
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.router,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s
}

// setupRouter configures the HTTP router with middleware and routes
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Security())
	if s.config.Server.EnableCORS {
		r.Use(middleware.CORS(s.config.Server.AllowedOrigins))
	}
	r.Use(middleware.JSONOnly())
	r.Use(chimiddleware.Compress(5))

	healthPath := s.config.Monitoring.HealthCheckPath
	if healthPath == "" {
		healthPath = "/health"
	}
	r.Get(healthPath, s.handleHealth)

	if s.config.Monitoring.EnableMetrics && s.metrics != nil {
		metricsPath := s.config.Monitoring.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.Handle(metricsPath, s.metrics.Handler())
	}

	h := handlers.NewChatAPIHandlers(s.orchestrator, s.store, s.logger)
	r.Route("/api/v1/chat", func(r chi.Router) {
		r.Post("/message", h.SubmitMessage)
		r.Post("/context-decision", h.DecideContext)
		r.Put("/context-decision", h.SetContextPreference)
		r.Post("/continue", h.ContinueToPreferences)
		r.Post("/preferences", h.ConfirmPreferences)
		r.Post("/preferences/cancel", h.CancelPreferences)
		r.Post("/new", h.NewSession)
		r.Get("/state", h.GetState)
		r.Get("/sessions", h.ListSessions)
		r.Post("/sessions/{id}/load", h.LoadSession)
		r.Delete("/sessions/{id}", h.DeleteSession)
	})

	return r
}

// handleHealth reports process liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","app":%q,"version":%q}`,
		s.config.App.Name, s.config.App.Version)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr),
		zap.String("environment", s.config.App.Environment))

	if err := http2.ConfigureServer(s.server, nil); err != nil {
		return fmt.Errorf("failed to configure HTTP/2: %w", err)
	}

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the configured router for tests
func (s *Server) Router() http.Handler {
	return s.router
}
