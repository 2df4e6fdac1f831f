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

package pdfqa

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/poiesic/pdfqa/ai"
	"github.com/poiesic/pdfqa/ai/googleai"
	"github.com/poiesic/pdfqa/ai/huggingface"
	"github.com/poiesic/pdfqa/ai/openai"
	"github.com/poiesic/pdfqa/chat"
	"github.com/poiesic/pdfqa/chunker"
	"github.com/poiesic/pdfqa/core"
	"github.com/poiesic/pdfqa/ingestion"
	"github.com/poiesic/pdfqa/pdf"
	"github.com/poiesic/pdfqa/registry"
	"github.com/poiesic/pdfqa/reindex"
	"github.com/poiesic/pdfqa/search"
	"github.com/poiesic/pdfqa/server"
	"github.com/poiesic/pdfqa/storage/badger"
	"github.com/poiesic/pdfqa/vectorindex"
)

// conversationsDir is the BadgerDB directory under the data directory.
const conversationsDir = "conversations"

// App holds the wired services of a pdfqa instance.
type App struct {
	config        *Config
	documents     *registry.Registry
	providers     *ai.Providers
	embedder      ai.Embedder
	pipeline      *ingestion.Pipeline
	answerer      *search.Answerer
	backend       *badger.Backend
	conversations *badger.ConversationRepository
	chat          *chat.Service
	logger        *slog.Logger
}

// BuiltinProviders returns a registry with the gemini, openai and huggingface
// backends registered.
func BuiltinProviders() *ai.Registry {
	r := ai.NewRegistry()
	googleai.Register(r)
	openai.Register(r)
	huggingface.Register(r)
	return r
}

// New wires an App from the default config and opts.
func New(ctx context.Context, opts ...Option) (*App, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.logger

	aiRegistry := cfg.aiRegistry
	if aiRegistry == nil {
		aiRegistry = BuiltinProviders()
	}
	providerOpts := []ai.ProvidersOption{
		ai.WithDefaultProvider(cfg.DefaultProvider),
		ai.WithProvidersLogger(logger),
	}
	for _, pc := range cfg.Providers {
		providerOpts = append(providerOpts, ai.WithProviderConfig(pc))
	}
	providers, err := ai.NewProviders(aiRegistry, providerOpts...)
	if err != nil {
		return nil, err
	}

	app := &App{config: cfg, providers: providers, logger: logger.With("component", "app")}
	if err := app.init(ctx); err != nil {
		if closeErr := app.Close(); closeErr != nil {
			app.logger.Error("error closing after failed startup", "err", closeErr)
		}
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.config

	embedProvider, err := a.providers.Provider(ctx, cfg.EmbeddingProvider)
	if err != nil {
		return err
	}
	a.embedder = embedProvider.Embedder()
	embedConfig := a.providers.Config(cfg.EmbeddingProvider)

	a.documents, err = registry.New(cfg.UploadDir, registry.WithLogger(cfg.logger))
	if err != nil {
		return err
	}

	splitter, err := chunker.New(
		chunker.WithChunkSize(cfg.ChunkSize),
		chunker.WithChunkOverlap(cfg.ChunkOverlap),
	)
	if err != nil {
		return err
	}

	pipelineOpts := []ingestion.Option{
		ingestion.WithChunker(splitter),
		ingestion.WithIndexMetadata(map[string]string{
			vectorindex.MetaEmbeddingProvider: ai.CanonicalName(embedConfig.Provider),
			vectorindex.MetaEmbeddingModel:    embedConfig.EmbeddingModel,
		}),
		ingestion.WithLogger(cfg.logger),
	}
	if cfg.EmbeddingWorkers > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithPoolSize(cfg.EmbeddingWorkers))
	}
	var extractor ingestion.Extractor = pdf.NewExtractor(pdf.WithLogger(cfg.logger))
	if cfg.extractor != nil {
		extractor = cfg.extractor
	}
	a.pipeline, err = ingestion.NewPipeline(cfg.UploadDir,
		extractor,
		a.embedder,
		a.documents,
		pipelineOpts...,
	)
	if err != nil {
		return err
	}

	retriever, err := search.NewRetriever(search.WithDefaultK(cfg.RetrievalK), search.WithRetrieverLogger(cfg.logger))
	if err != nil {
		return err
	}
	a.answerer, err = search.NewAnswerer(a.providers, search.WithRetriever(retriever), search.WithLogger(cfg.logger))
	if err != nil {
		return err
	}

	storePath := filepath.Join(cfg.DataDir, conversationsDir)
	if cfg.InMemoryStore {
		storePath = ""
	}
	a.backend, err = badger.OpenBackend(storePath, cfg.InMemoryStore, badger.WithLogger(cfg.logger))
	if err != nil {
		return err
	}
	a.conversations, err = badger.NewConversationRepository(a.backend)
	if err != nil {
		return err
	}

	a.chat, err = chat.NewService(a.providers, a.conversations,
		chat.WithScenarioDefaults(a.providers.Default(), a.providers.Config("").GenerationModel),
		chat.WithLogger(cfg.logger),
	)
	if err != nil {
		return err
	}

	a.logger.Info("pdfqa ready",
		"uploads", cfg.UploadDir,
		"embedding_provider", embedConfig.Provider,
		"default_provider", a.providers.Default(),
		"providers", a.providers.Names())
	return nil
}

// Close releases the providers and the conversation store.
func (a *App) Close() error {
	var errs []error
	if err := a.providers.Close(); err != nil {
		a.logger.Error("error closing AI providers", "err", err)
		errs = append(errs, err)
	}
	if a.conversations != nil {
		if err := a.conversations.Close(); err != nil {
			a.logger.Error("error closing conversation repository", "err", err)
			errs = append(errs, err)
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config returns the resolved configuration.
func (a *App) Config() *Config { return a.config }

// Documents returns the document registry.
func (a *App) Documents() *registry.Registry { return a.documents }

// Pipeline returns the ingestion pipeline.
func (a *App) Pipeline() *ingestion.Pipeline { return a.pipeline }

// Answerer returns the question answerer.
func (a *App) Answerer() *search.Answerer { return a.answerer }

// Chat returns the chat service.
func (a *App) Chat() *chat.Service { return a.chat }

// Providers returns the configured model providers.
func (a *App) Providers() *ai.Providers { return a.providers }

// LoadIndex loads the index of doc with the configured embedder attached for
// queries. An index built by another embedding provider still loads, but
// similarity scores across providers are meaningless until it is rebuilt.
func (a *App) LoadIndex(_ context.Context, doc *core.Document) (*vectorindex.Index, error) {
	idx, err := vectorindex.Load(doc.IndexPath, a.embedder)
	if err != nil {
		return nil, err
	}
	built := idx.Metadata()[vectorindex.MetaEmbeddingProvider]
	current := ai.CanonicalName(a.providers.Config(a.config.EmbeddingProvider).Provider)
	if built != "" && built != current {
		a.logger.Warn("index was built with a different embedding provider, consider running reindex",
			"id", doc.ID, "built_with", built, "configured", current)
	}
	return idx, nil
}

// Ask answers question from the document registered under id.
func (a *App) Ask(ctx context.Context, id, question string, opts search.Options, monitor search.Monitor) (*search.Answer, *core.Document, error) {
	doc, err := a.documents.Lookup(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	idx, err := a.LoadIndex(ctx, doc)
	if err != nil {
		return nil, doc, err
	}
	answer, err := a.answerer.AnswerWithMonitor(ctx, idx, question, opts, monitor)
	if err != nil {
		return nil, doc, err
	}
	return answer, doc, nil
}

// NewServer builds the HTTP API over the app's services.
func (a *App) NewServer(opts ...server.Option) (*server.Server, error) {
	base := []server.Option{
		server.WithAddr(a.config.Addr),
		server.WithProduction(a.config.Production),
		server.WithLogger(a.config.logger),
	}
	if a.config.MaxUploadSize > 0 {
		base = append(base, server.WithMaxUploadSize(a.config.MaxUploadSize))
	}
	return server.New(server.Deps{
		Documents: a.documents,
		Ingester:  a.pipeline,
		Indexes:   a.LoadIndex,
		Answerer:  a.answerer,
		Chat:      a.chat,
		Providers: a.providers,
	}, append(base, opts...)...)
}

// NewReindexer returns a reindexer rebuilding documents with the configured
// embedding provider.
func (a *App) NewReindexer(config *reindex.Config, progress io.Writer) (*reindex.Reindexer, error) {
	return reindex.NewReindexer(a.documents, a.pipeline, config, progress)
}
