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

package mock

import (
	"context"

	"github.com/poiesic/pdfqa/ai"
)

// MockProvider is a test double for ai.AIProvider.
// It aggregates an embedder and a mock generator.
type MockProvider struct {
	name      string
	embedder  ai.Embedder
	generator *MockGenerator
	closed    bool
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockEmbedder()/GetMockGenerator() to access concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		name:      "mock",
		embedder:  NewMockEmbedder(),
		generator: NewMockGenerator("mock answer"),
	}
}

// NewMockProviderWithServices creates a mock provider with custom services.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(name string, embedder ai.Embedder, generator *MockGenerator) *MockProvider {
	return &MockProvider{
		name:      name,
		embedder:  embedder,
		generator: generator,
	}
}

// Factory returns an ai.Factory that always yields p, so tests can register
// a mock under any provider key.
func Factory(p *MockProvider) ai.Factory {
	return func(context.Context, *ai.Config) (ai.AIProvider, error) {
		return p, nil
	}
}

// Name returns the configured provider key.
func (p *MockProvider) Name() string {
	return p.name
}

// Embedder returns the embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Generator returns the mock generator.
func (p *MockProvider) Generator() ai.Generator {
	return p.generator
}

// Close marks the provider closed.
func (p *MockProvider) Close() error {
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *MockProvider) Closed() bool {
	return p.closed
}

// GetMockEmbedder returns the underlying embedder when it is a *MockEmbedder.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	m, _ := p.embedder.(*MockEmbedder)
	return m
}

// GetMockGenerator returns the underlying mock generator for test assertions.
func (p *MockProvider) GetMockGenerator() *MockGenerator {
	return p.generator
}
