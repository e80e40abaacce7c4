// Package server provides the HTTP API for the helpline.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/config"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/corpus"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/embedding"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/retriever"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/storage"
)

// Server is the HTTP server for the helpline API. The retrieval index is held
// behind an atomic pointer: searches read whichever index is current, and
// rebuilds construct a fresh index off to the side and swap it in whole, so
// in-flight queries never observe a partially built index.
type Server struct {
	index    atomic.Pointer[retriever.Index]
	embedder embedding.Embedder
	storage  storage.Storage
	cfg      *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. ix must be
// query-ready (built or restored).
func NewServer(
	ix *retriever.Index,
	embedder embedding.Embedder,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		embedder: embedder,
		storage:  store,
		cfg:      cfg,
		logger:   logger,
	}
	s.index.Store(ix)
	return s
}

// Index returns the currently served retrieval index.
func (s *Server) Index() *retriever.Index {
	return s.index.Load()
}

// Rebuild constructs a fresh index from src and swaps it in. The previous
// index keeps serving until the swap; on failure it stays in place.
func (s *Server) Rebuild(ctx context.Context, src corpus.Source) error {
	faqs, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	fresh := retriever.New(s.embedder, s.snapshotPaths(), retriever.WithLogger(s.logger))
	if err := fresh.Build(ctx, faqs); err != nil {
		return err
	}
	s.index.Store(fresh)
	s.logger.Info("index swapped", zap.Int("faqs", fresh.Size()))
	return nil
}

func (s *Server) snapshotPaths() retriever.Paths {
	return retriever.Paths{
		Vectors: s.cfg.Storage.VectorIndexPath,
		Records: s.cfg.Storage.MetadataPath,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ask", s.handleAsk)
	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/faqs", s.handleCreateFAQ)
	r.Get("/api/v1/faqs", s.handleListFAQs)
	r.Get("/api/v1/faqs/{key}", s.handleGetFAQ)
	r.Put("/api/v1/faqs/{key}", s.handleUpdateFAQ)
	r.Delete("/api/v1/faqs/{key}", s.handleDeleteFAQ)
	r.Post("/api/v1/rebuild", s.handleRebuild)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
