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

package googleai

import (
	"context"
	"log/slog"

	"github.com/poiesic/pdfqa/ai"
	"github.com/poiesic/pdfqa/ai/internal/langchain"
	"github.com/tmc/langchaingo/llms/googleai"
)

// Provider implements ai.AIProvider using the Gemini API.
type Provider struct {
	config    *ai.Config
	embedder  *langchain.Embedder
	generator *langchain.Generator
	logger    *slog.Logger
}

// NewProvider creates a Gemini provider. The config must carry an API key.
func NewProvider(ctx context.Context, config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := googleai.New(ctx,
		googleai.WithAPIKey(config.APIKey),
		googleai.WithDefaultModel(config.GenerationModel),
		googleai.WithDefaultEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	embedder, err := langchain.NewEmbedder(ai.ProviderGemini, client, logger)
	if err != nil {
		return nil, err
	}
	generator, err := langchain.NewGenerator(ai.ProviderGemini, client, config.GenerationModel, logger)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:    config,
		embedder:  embedder,
		generator: generator,
		logger:    logger.With("component", "gemini-provider"),
	}, nil
}

// Register adds the gemini factory to r. The googleai key resolves to it as an alias.
func Register(r *ai.Registry) {
	r.Register(ai.ProviderGemini, NewProvider)
}

// Name returns "gemini".
func (p *Provider) Name() string {
	return ai.ProviderGemini
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Generator returns the text generation service.
func (p *Provider) Generator() ai.Generator {
	return p.generator
}

// Close is a no-op; the Gemini client holds no pooled connections of its own.
func (p *Provider) Close() error {
	p.logger.Debug("closing Gemini provider")
	return nil
}
