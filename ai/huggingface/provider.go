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

package huggingface

import (
	"context"
	"log/slog"

	"github.com/poiesic/pdfqa/ai"
	"github.com/poiesic/pdfqa/ai/internal/langchain"
	"github.com/tmc/langchaingo/llms/huggingface"
)

// Provider implements ai.AIProvider over the Hugging Face inference API.
// Only generation is available; the embedder always fails with
// ai.ErrCapabilityUnsupported.
type Provider struct {
	config    *ai.Config
	generator *langchain.Generator
	logger    *slog.Logger
}

// NewProvider creates a Hugging Face provider.
func NewProvider(_ context.Context, config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := huggingface.New(
		huggingface.WithToken(config.APIKey),
		huggingface.WithModel(config.GenerationModel),
	)
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	// The inference client reads only the first message part.
	generator, err := langchain.NewGenerator(ai.ProviderHuggingFace, client, config.GenerationModel, logger,
		langchain.WithSinglePrompt())
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:    config,
		generator: generator,
		logger:    logger.With("component", "huggingface-provider"),
	}, nil
}

// Register adds the huggingface factory to r.
func Register(r *ai.Registry) {
	r.Register(ai.ProviderHuggingFace, NewProvider)
}

// Name returns "huggingface".
func (p *Provider) Name() string {
	return ai.ProviderHuggingFace
}

// Embedder returns an embedder that always fails.
func (p *Provider) Embedder() ai.Embedder {
	return langchain.Unsupported{Provider: ai.ProviderHuggingFace}
}

// Generator returns the text generation service.
func (p *Provider) Generator() ai.Generator {
	return p.generator
}

// Close releases resources held by the provider.
func (p *Provider) Close() error {
	p.logger.Debug("closing Hugging Face provider")
	return nil
}
