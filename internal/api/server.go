// Package api exposes spendwise data and analytics as a JSON HTTP API.
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Veraticus/spendwise/internal/events"
	"github.com/Veraticus/spendwise/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MaxUploadSize is the largest CSV body accepted by the import endpoint (10MB).
const MaxUploadSize = 10 * 1024 * 1024

// RequestTimeout bounds how long a single request may run.
const RequestTimeout = 30 * time.Second

// Server is the HTTP API server.
type Server struct {
	store     service.Storage
	publisher service.EventPublisher
	logger    *slog.Logger
	router    *chi.Mux
	now       func() time.Time

	mu     sync.Mutex
	server *http.Server
	closed bool
}

// NewServer creates a Server backed by store. A nil publisher disables events.
func NewServer(store service.Storage, publisher service.EventPublisher, logger *slog.Logger) *Server {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:     store,
		publisher: publisher,
		logger:    logger.With("component", "api"),
		router:    chi.NewRouter(),
		now:       time.Now,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(RequestTimeout))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Post("/bulk", s.handleBulkTransactions)
			r.Get("/{id}", s.handleGetTransaction)
			r.Put("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})
		r.Get("/cards", s.handleListCards)

		r.Route("/rewards", func(r chi.Router) {
			r.Get("/", s.handleListRewards)
			r.Post("/", s.handleCreateReward)
			r.Get("/{id}", s.handleGetReward)
			r.Put("/{id}/balance", s.handleUpdateBalance)
			r.Delete("/{id}", s.handleDeleteReward)
			r.Post("/{id}/options", s.handleAddOption)
			r.Put("/options/{optionID}", s.handleUpdateOption)
			r.Delete("/options/{optionID}", s.handleDeleteOption)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.handleListRules)
			r.Post("/", s.handleCreateRule)
			r.Get("/suggestions", s.handleSuggestRules)
			r.Put("/{id}/active", s.handleSetRuleActive)
			r.Delete("/{id}", s.handleDeleteRule)
		})

		r.Get("/rates", s.handleGetRates)
		r.Put("/rates", s.handleSaveRates)
		r.Get("/settings/advisory", s.handleGetAdvisory)
		r.Put("/settings/advisory", s.handleSaveAdvisory)
		r.Get("/profile", s.handleGetProfile)
		r.Put("/profile", s.handleSaveProfile)

		r.Get("/analytics", s.handleAnalytics)
		r.Get("/points", s.handlePoints)
		r.Get("/recommendations", s.handleRecommendations)

		r.Post("/import/csv", s.handleImportCSV)
	})
}

// Handler returns the router for embedding or testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	return s.listen(addr, nil)
}

// StartTLS is Start over HTTPS with cert.
func (s *Server) StartTLS(addr string, cert tls.Certificate) error {
	return s.listen(addr, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
}

func (s *Server) listen(addr string, tlsConfig *tls.Config) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.server = srv
	s.mu.Unlock()

	s.logger.Info("Starting API server", "addr", addr, "tls", tlsConfig != nil)
	var err error
	if tlsConfig != nil {
		// certificates come from TLSConfig
		err = srv.ListenAndServeTLS("", "")
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server. A later Start returns immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
