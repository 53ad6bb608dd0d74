// Package api exposes import sessions and batches over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/SteelMorgan/sqldump-importer/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Importer is the session API the HTTP layer drives
type Importer interface {
	StartSession(ctx context.Context, file string) (*domain.ImportCheckpoint, error)
	Session(ctx context.Context, id string) (*domain.ImportCheckpoint, error)
	Sessions(ctx context.Context) ([]domain.ImportCheckpoint, error)
	RunBatch(ctx context.Context, id string) (*domain.BatchResult, error)
	RunCheckpoint(ctx context.Context, cp domain.ImportCheckpoint) (*domain.BatchResult, error)
}

// Server is the HTTP server of the importer
type Server struct {
	importer Importer
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a new Server instance
func NewServer(importer Importer) *Server {
	s := &Server{
		importer: importer,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	// A batch is bounded by its own time budget; this only catches runaways
	s.router.Use(middleware.Timeout(120 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Stored sessions
		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleStartSession)
		r.Get("/sessions/{sessionID}", s.handleGetSession)
		r.Post("/sessions/{sessionID}/batch", s.handleSessionBatch)

		// Stateless batch: the caller carries the checkpoint between requests
		r.Post("/import/batch", s.handleStatelessBatch)
	})
}

// Start begins listening for HTTP requests
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 130 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}

// requestLogger logs every request through zerolog
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
