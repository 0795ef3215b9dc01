// Package server provides the HTTP API for kotae.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Ingester runs the ingestion pipeline.
type Ingester interface {
	Ingest(ctx context.Context, doc *models.Document) (*models.IngestResult, error)
	ChunkSize() int
}

// Answerer runs the query pipeline.
type Answerer interface {
	Ask(ctx context.Context, query string) (string, error)
}

// Generator drafts documents and analyzes review spreadsheets.
type Generator interface {
	GenerateDocument(ctx context.Context, req models.GenerateRequest) (string, error)
	AnalyzeReviews(ctx context.Context, csv []byte) (string, error)
}

// WatchService reports the inbox directories being watched.
type WatchService interface {
	Directories() []string
}

// Server is the HTTP server for the kotae API.
type Server struct {
	ingester    Ingester
	answerer    Answerer
	generator   Generator
	vectorIndex vector.VectorIndex
	config      *config.Config
	watch       WatchService
	logger      *zap.Logger
	server      *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithWatchService reports the watcher's directories in the status response.
func WithWatchService(w WatchService) ServerOption {
	return func(s *Server) { s.watch = w }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	ingester Ingester,
	answerer Answerer,
	generator Generator,
	vectorIndex vector.VectorIndex,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...ServerOption,
) *Server {
	s := &Server{
		ingester:    ingester,
		answerer:    answerer,
		generator:   generator,
		vectorIndex: vectorIndex,
		config:      cfg,
		logger:      utils.OrNop(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/documents", s.handleIngest)
	r.Post("/api/v1/query", s.handleQuery)
	r.Post("/api/v1/generate", s.handleGenerate)
	r.Post("/api/v1/reviews", s.handleReviews)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	// Routes kept for existing clients.
	r.Post("/upload-document", s.handleIngest)
	r.Post("/query", s.handleQuery)
	r.Post("/generate-document", s.handleGenerate)
	r.Post("/process-performance-review", s.handleReviews)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
