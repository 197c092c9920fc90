// Package server exposes the read-only JSON API over the record store.
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

	"ipo-tracker/internal/alerts"
	"ipo-tracker/internal/pricing"
	"ipo-tracker/internal/resilience"
	"ipo-tracker/internal/store"
)

// UserHeader carries the caller's user id on every /api request.
const UserHeader = "X-User-Id"

// Config holds server configuration
type Config struct {
	Port        int
	Log         zerolog.Logger
	Store       store.RecordStore
	Quotes      pricing.QuoteFetcher
	Health      *resilience.HealthMonitor
	Checker     *alerts.Checker // optional; enables /api/alerts/last
	Concurrency int
	DevMode     bool
}

// Server represents the HTTP server
type Server struct {
	router      *chi.Mux
	server      *http.Server
	log         zerolog.Logger
	store       store.RecordStore
	quotes      pricing.QuoteFetcher
	health      *resilience.HealthMonitor
	checker     *alerts.Checker
	concurrency int
	port        int
}

type ctxKey struct{}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		store:       cfg.Store,
		quotes:      cfg.Quotes,
		health:      cfg.Health,
		checker:     cfg.Checker,
		concurrency: cfg.Concurrency,
		port:        cfg.Port,
	}
	if s.health == nil {
		s.health = resilience.NewHealthMonitor(5 * time.Second)
		s.health.RegisterComponent("store", resilience.PingCheck(cfg.Store.Ping))
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", UserHeader},
		MaxAge:         300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(requireUser)

		r.Get("/portfolio/summary", s.handlePortfolioSummary)
		r.Get("/classification", s.handleClassification)
		r.Get("/alert-rules/resolve", s.handleResolveRule)
		r.Get("/companies/{id}", s.handleCompany)
		r.Get("/alerts/last", s.handleLastAlerts)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// requireUser rejects requests without a user id. Identity is taken from
// the header as-is; authentication happens in front of this service.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get(UserHeader)
		if user == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"error": "missing " + UserHeader + " header",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	})
}

func userID(r *http.Request) string {
	user, _ := r.Context().Value(ctxKey{}).(string)
	return user
}
