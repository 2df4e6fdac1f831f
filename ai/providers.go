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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Providers resolves provider keys to live providers. Each configured
// provider is built on first use through the Registry and cached.
// It is safe for concurrent use.
type Providers struct {
	registry    *Registry
	configs     map[string]*Config
	defaultName string
	logger      *slog.Logger

	mu    sync.Mutex
	cache map[string]AIProvider
}

// ProvidersOption configures a Providers set.
type ProvidersOption func(*Providers) error

// WithProviderConfig adds the configuration used when cfg.Provider is requested.
func WithProviderConfig(cfg *Config) ProvidersOption {
	return func(p *Providers) error {
		if cfg == nil {
			return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
		}
		p.configs[CanonicalName(cfg.Provider)] = cfg
		return nil
	}
}

// WithDefaultProvider selects the provider used for empty keys.
// Default is gemini.
func WithDefaultProvider(name string) ProvidersOption {
	return func(p *Providers) error {
		if name != "" {
			p.defaultName = CanonicalName(name)
		}
		return nil
	}
}

// WithProvidersLogger sets a custom logger.
// Default is slog.Default().
func WithProvidersLogger(logger *slog.Logger) ProvidersOption {
	return func(p *Providers) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewProviders creates a provider set over registry.
func NewProviders(registry *Registry, opts ...ProvidersOption) (*Providers, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	p := &Providers{
		registry:    registry,
		configs:     make(map[string]*Config),
		defaultName: ProviderGemini,
		logger:      slog.Default(),
		cache:       make(map[string]AIProvider),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "providers")
	return p, nil
}

// Default returns the key used when a caller names no provider.
func (p *Providers) Default() string { return p.defaultName }

// Names returns the keys that are both registered and configured, sorted.
func (p *Providers) Names() []string {
	names := make([]string, 0, len(p.configs))
	for name := range p.configs {
		if p.registry.Has(name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Config returns the configuration for name, falling back to the built-in
// defaults for unconfigured providers.
func (p *Providers) Config(name string) *Config {
	name = p.resolve(name)
	if cfg, ok := p.configs[name]; ok {
		return cfg
	}
	return DefaultConfigFor(name)
}

// Provider returns the provider registered under name, building it on first use.
// An empty name selects the default provider.
func (p *Providers) Provider(ctx context.Context, name string) (AIProvider, error) {
	name = p.resolve(name)

	p.mu.Lock()
	defer p.mu.Unlock()

	if provider, ok := p.cache[name]; ok {
		return provider, nil
	}
	if !p.registry.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	cfg := *p.Config(name)
	cfg.Provider = name
	provider, err := p.registry.New(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	p.cache[name] = provider
	p.logger.Debug("initialized provider", "provider", name, "model", cfg.GenerationModel)
	return provider, nil
}

// Close closes every provider built so far.
func (p *Providers) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for name, provider := range p.cache {
		if err := provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
		}
		delete(p.cache, name)
	}
	return errors.Join(errs...)
}

func (p *Providers) resolve(name string) string {
	if name == "" {
		return p.defaultName
	}
	return CanonicalName(name)
}
