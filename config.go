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
	"log/slog"
	"strings"

	"github.com/poiesic/pdfqa/ai"
	"github.com/poiesic/pdfqa/chunker"
	"github.com/poiesic/pdfqa/core"
	"github.com/poiesic/pdfqa/ingestion"
	"github.com/poiesic/pdfqa/search"
	"github.com/poiesic/pdfqa/server"
)

// Config holds the settings of a pdfqa instance.
type Config struct {
	// UploadDir holds uploaded PDFs, their indexes and the id mapping.
	UploadDir string

	// DataDir holds the conversation store.
	DataDir string

	// Addr is the HTTP listen address.
	Addr string

	// Production hides internal error detail from HTTP responses.
	Production bool

	// MaxUploadSize is the largest accepted upload in bytes.
	MaxUploadSize int64

	// EmbeddingProvider builds every index and embeds every query.
	EmbeddingProvider string

	// DefaultProvider answers questions and chats when a request names none.
	DefaultProvider string

	// Providers are the per-provider credentials and model choices.
	Providers []*ai.Config

	ChunkSize        int
	ChunkOverlap     int
	RetrievalK       int
	EmbeddingWorkers int // Zero leaves the pipeline default

	// InMemoryStore keeps conversations in memory only.
	InMemoryStore bool

	aiRegistry *ai.Registry
	extractor  ingestion.Extractor
	logger     *slog.Logger
}

// DefaultConfig returns the stock settings: uploads in "uploads", data in
// "data", gemini for everything.
func DefaultConfig() *Config {
	return &Config{
		UploadDir:         "uploads",
		DataDir:           "data",
		Addr:              ":3000",
		MaxUploadSize:     server.DefaultMaxUploadSize,
		EmbeddingProvider: ai.ProviderGemini,
		DefaultProvider:   ai.ProviderGemini,
		ChunkSize:         chunker.DefaultChunkSize,
		ChunkOverlap:      chunker.DefaultChunkOverlap,
		RetrievalK:        search.DefaultK,
		logger:            slog.Default(),
	}
}

// Validate checks the config for values that cannot work.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.UploadDir) == "":
		return core.Invalid("upload dir", "is required")
	case strings.TrimSpace(c.DataDir) == "" && !c.InMemoryStore:
		return core.Invalid("data dir", "is required")
	case strings.TrimSpace(c.EmbeddingProvider) == "":
		return core.Invalid("embedding provider", "is required")
	case c.RetrievalK < 1:
		return core.Invalid("retrieval k", "must be at least 1")
	case c.EmbeddingWorkers < 0:
		return core.Invalid("embedding workers", "cannot be negative")
	}
	for _, pc := range c.Providers {
		if pc == nil || strings.TrimSpace(pc.Provider) == "" {
			return core.Invalid("provider config", "needs a provider key")
		}
	}
	return nil
}

// Option configures an App.
type Option func(*Config)

// WithUploadDir sets the upload directory.
func WithUploadDir(dir string) Option {
	return func(c *Config) { c.UploadDir = dir }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) Option {
	return func(c *Config) { c.DataDir = dir }
}

// WithAddr sets the HTTP listen address.
func WithAddr(addr string) Option {
	return func(c *Config) { c.Addr = addr }
}

// WithProduction hides internal error detail from HTTP responses.
func WithProduction(production bool) Option {
	return func(c *Config) { c.Production = production }
}

// WithMaxUploadSize sets the largest accepted upload in bytes.
func WithMaxUploadSize(size int64) Option {
	return func(c *Config) { c.MaxUploadSize = size }
}

// WithProvider adds or replaces the configuration of one provider.
func WithProvider(cfg *ai.Config) Option {
	return func(c *Config) {
		if cfg == nil {
			return
		}
		name := ai.CanonicalName(cfg.Provider)
		for i, existing := range c.Providers {
			if ai.CanonicalName(existing.Provider) == name {
				c.Providers[i] = cfg
				return
			}
		}
		c.Providers = append(c.Providers, cfg)
	}
}

// WithEmbeddingProvider selects the provider that embeds documents and queries.
func WithEmbeddingProvider(name string) Option {
	return func(c *Config) { c.EmbeddingProvider = name }
}

// WithDefaultProvider selects the provider used when a request names none.
func WithDefaultProvider(name string) Option {
	return func(c *Config) { c.DefaultProvider = name }
}

// WithChunking sets the chunk size and overlap in characters.
func WithChunking(size, overlap int) Option {
	return func(c *Config) {
		c.ChunkSize = size
		c.ChunkOverlap = overlap
	}
}

// WithRetrievalK sets how many passages feed each answer.
func WithRetrievalK(k int) Option {
	return func(c *Config) { c.RetrievalK = k }
}

// WithEmbeddingWorkers sets the embedding worker pool size.
func WithEmbeddingWorkers(n int) Option {
	return func(c *Config) { c.EmbeddingWorkers = n }
}

// WithInMemoryStore keeps conversations in memory.
func WithInMemoryStore() Option {
	return func(c *Config) { c.InMemoryStore = true }
}

// WithAIRegistry replaces the built-in provider backends.
func WithAIRegistry(r *ai.Registry) Option {
	return func(c *Config) { c.aiRegistry = r }
}

// WithExtractor replaces the PDF text extractor.
func WithExtractor(e ingestion.Extractor) Option {
	return func(c *Config) { c.extractor = e }
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}
