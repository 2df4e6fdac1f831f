// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/pdfqa/chat"
	"github.com/poiesic/pdfqa/core"
	"github.com/poiesic/pdfqa/ingestion"
	"github.com/poiesic/pdfqa/search"
	"github.com/poiesic/pdfqa/vectorindex"
)

// DefaultMaxUploadSize is the largest accepted PDF upload.
const DefaultMaxUploadSize = 10 << 20

const shutdownTimeout = 10 * time.Second

// Documents looks up registered documents.
type Documents interface {
	Lookup(ctx context.Context, id string) (*core.Document, error)
	List(ctx context.Context) ([]*core.Document, error)
}

// Ingester stores and indexes an uploaded PDF.
type Ingester interface {
	Ingest(ctx context.Context, filename string, r io.Reader) (*ingestion.Result, error)
}

// IndexLoader loads the vector index of a document, ready for querying.
type IndexLoader func(ctx context.Context, doc *core.Document) (*vectorindex.Index, error)

// Answerer answers a question from a loaded index.
type Answerer interface {
	Answer(ctx context.Context, idx *vectorindex.Index, question string, opts search.Options) (*search.Answer, error)
}

// ChatService runs generic chat turns and exposes their history.
type ChatService interface {
	Chat(ctx context.Context, req chat.Request) (*chat.Response, error)
	Scenario(ctx context.Context, name string, req chat.Request) (*chat.Response, error)
	Scenarios() []chat.Scenario
	CreateConversation(ctx context.Context, title string) (*core.Conversation, error)
	Conversations(ctx context.Context) ([]*core.Conversation, error)
	Messages(ctx context.Context, conversationID string) ([]*core.Message, error)
}

// ProviderLister reports the configured model providers.
type ProviderLister interface {
	Names() []string
	Default() string
}

// Deps are the services the HTTP boundary delegates to.
type Deps struct {
	Documents Documents
	Ingester  Ingester
	Indexes   IndexLoader
	Answerer  Answerer
	Chat      ChatService
	Providers ProviderLister
}

func (d Deps) validate() error {
	switch {
	case d.Documents == nil:
		return ErrDocumentsRequired
	case d.Ingester == nil:
		return ErrIngesterRequired
	case d.Indexes == nil:
		return ErrIndexLoaderRequired
	case d.Answerer == nil:
		return ErrAnswererRequired
	case d.Chat == nil:
		return ErrChatRequired
	case d.Providers == nil:
		return ErrProvidersRequired
	}
	return nil
}

// Server is the HTTP API.
type Server struct {
	deps          Deps
	engine        *gin.Engine
	addr          string
	production    bool
	maxUploadSize int64
	logger        *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithAddr sets the listen address.
// Default is ":3000".
func WithAddr(addr string) Option {
	return func(s *Server) error {
		if addr != "" {
			s.addr = addr
		}
		return nil
	}
}

// WithProduction hides internal error detail from responses.
func WithProduction(production bool) Option {
	return func(s *Server) error {
		s.production = production
		return nil
	}
}

// WithMaxUploadSize sets the largest accepted upload in bytes.
// Default is DefaultMaxUploadSize.
func WithMaxUploadSize(size int64) Option {
	return func(s *Server) error {
		if size <= 0 {
			return core.Invalid("max upload size", "must be positive")
		}
		s.maxUploadSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates the server and registers its routes.
func New(deps Deps, opts ...Option) (*Server, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	s := &Server{
		deps:          deps,
		addr:          ":3000",
		maxUploadSize: DefaultMaxUploadSize,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "server")

	engine := gin.New()
	engine.Use(
		Recovery(s.logger, s.production),
		RequestLogger(s.logger),
		SecurityHeaders(),
		CORS(),
	)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found"})
	})
	s.engine = engine
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	pdf := s.engine.Group("/api/pdf")
	pdf.POST("/upload", s.uploadPDF)
	pdf.POST("/ask", s.askPDF)
	pdf.GET("/list", s.listPDFs)

	api := s.engine.Group("/api/chat")
	api.POST("", s.chat)
	api.POST("/generate", s.generate)
	api.POST("/scenario/:name", s.scenario)
	api.GET("/scenarios", s.scenarios)
	api.GET("/providers", s.providers)
	api.POST("/conversations", s.createConversation)
	api.GET("/conversations", s.conversations)
	api.GET("/conversations/:id/messages", s.messages)
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
