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

package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/pdfqa/ai"
	"github.com/poiesic/pdfqa/ai/internal/langchain"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider implements ai.AIProvider using OpenAI-compatible services.
// It manages embedder and generator instances sharing one client.
type Provider struct {
	config    *ai.Config
	embedder  *langchain.Embedder
	generator *langchain.Generator
	logger    *slog.Logger
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Local OpenAI-compatible services accept any token
	token := config.APIKey
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(config.EmbeddingModel),
		openai.WithModel(config.GenerationModel),
	)
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	embedder, err := langchain.NewEmbedder(ai.ProviderOpenAI, client, logger)
	if err != nil {
		return nil, err
	}
	generator, err := langchain.NewGenerator(ai.ProviderOpenAI, client, config.GenerationModel, logger)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:    config,
		embedder:  embedder,
		generator: generator,
		logger:    logger.With("component", "openai-provider"),
	}, nil
}

// Factory adapts NewProvider to ai.Factory.
func Factory(_ context.Context, config *ai.Config) (ai.AIProvider, error) {
	return NewProvider(config)
}

// Register adds the openai factory to r.
func Register(r *ai.Registry) {
	r.Register(ai.ProviderOpenAI, Factory)
}

// Name returns "openai".
func (p *Provider) Name() string {
	return ai.ProviderOpenAI
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Generator returns the text generation service.
func (p *Provider) Generator() ai.Generator {
	return p.generator
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
