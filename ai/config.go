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

package ai

import (
	"fmt"
	"strings"
)

// Built-in provider keys.
const (
	ProviderGemini      = "gemini"
	ProviderGoogleAI    = "googleai"
	ProviderOpenAI      = "openai"
	ProviderHuggingFace = "huggingface"
)

// Config holds configuration for a single AI service provider.
type Config struct {
	// Provider is the registry key of the backend, e.g. "gemini" or "openai".
	Provider string

	// APIKey authenticates against the hosted service.
	// OpenAI-compatible local servers accept any value.
	APIKey string

	// BaseURL overrides the service endpoint.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server
	BaseURL string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embedding-001", "text-embedding-3-small"
	EmbeddingModel string

	// GenerationModel is the default model identifier for text generation.
	// Example: "gemini-pro", "gpt-4o-mini"
	GenerationModel string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the provider key.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithBaseURL sets the service endpoint.
func WithBaseURL(url string) ConfigOption {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithGenerationModel sets the default generation model identifier.
func WithGenerationModel(model string) ConfigOption {
	return func(c *Config) {
		c.GenerationModel = model
	}
}

// DefaultConfig returns a Config for the Gemini API with its stock models.
func DefaultConfig() *Config {
	return DefaultConfigFor(ProviderGemini)
}

// DefaultConfigFor returns the stock model settings for a built-in provider.
// Unknown providers get an otherwise empty Config carrying the key.
func DefaultConfigFor(provider string) *Config {
	switch CanonicalName(provider) {
	case ProviderGemini:
		return &Config{
			Provider:        ProviderGemini,
			EmbeddingModel:  "embedding-001",
			GenerationModel: "gemini-pro",
		}
	case ProviderOpenAI:
		return &Config{
			Provider:        ProviderOpenAI,
			BaseURL:         "https://api.openai.com/v1",
			EmbeddingModel:  "text-embedding-3-small",
			GenerationModel: "gpt-4o-mini",
		}
	case ProviderHuggingFace:
		return &Config{
			Provider:        ProviderHuggingFace,
			GenerationModel: "mistralai/Mistral-7B",
		}
	default:
		return &Config{Provider: provider}
	}
}

// NewConfig creates a Config with the default values for the chosen provider
// and applies the provided options. WithProvider, when present, selects the
// defaults; the remaining options override them.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider("openai"),
//	    WithBaseURL("http://localhost:11434/v1"),
//	    WithEmbeddingModel("nomic-embed-text"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	probe := &Config{Provider: ProviderGemini}
	for _, opt := range opts {
		opt(probe)
	}
	cfg := DefaultConfigFor(probe.Provider)
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// CanonicalName lowercases a provider key and resolves aliases.
func CanonicalName(provider string) string {
	name := strings.ToLower(strings.TrimSpace(provider))
	if name == ProviderGoogleAI {
		return ProviderGemini
	}
	return name
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get the /v1 suffix most servers (Ollama, LocalAI, vLLM) expect.
func (c *Config) Normalize() {
	c.Provider = CanonicalName(c.Provider)
	c.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.BaseURL), "/")
	if c.Provider == ProviderOpenAI && c.BaseURL != "" && !strings.HasSuffix(c.BaseURL, "/v1") {
		c.BaseURL = c.BaseURL + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Provider == "" {
		return fmt.Errorf("%w: Provider is required", ErrInvalidConfig)
	}
	if c.GenerationModel == "" {
		return fmt.Errorf("%w: GenerationModel is required", ErrInvalidConfig)
	}
	switch c.Provider {
	case ProviderGemini:
		if c.APIKey == "" {
			return fmt.Errorf("%w: APIKey is required for %s", ErrInvalidConfig, c.Provider)
		}
		if c.EmbeddingModel == "" {
			return fmt.Errorf("%w: EmbeddingModel is required", ErrInvalidConfig)
		}
	case ProviderOpenAI:
		if c.BaseURL == "" {
			return fmt.Errorf("%w: BaseURL is required for %s", ErrInvalidConfig, c.Provider)
		}
		if c.EmbeddingModel == "" {
			return fmt.Errorf("%w: EmbeddingModel is required", ErrInvalidConfig)
		}
	case ProviderHuggingFace:
		if c.APIKey == "" {
			return fmt.Errorf("%w: APIKey is required for %s", ErrInvalidConfig, c.Provider)
		}
	}
	return nil
}
