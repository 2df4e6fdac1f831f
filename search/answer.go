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

package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/pdfqa/ai"
	"github.com/poiesic/pdfqa/core"
	"github.com/poiesic/pdfqa/vectorindex"
	"github.com/tmc/langchaingo/prompts"
)

// Generation defaults applied when Options leaves them unset.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

// QuestionTemplate is the question-answering prompt.
const QuestionTemplate = `Answer the following question based on the provided context:

Question: {{.question}}

Context: {{.context}}`

// ProviderSource resolves a provider key to a live provider.
// An empty key selects the default provider.
type ProviderSource interface {
	Provider(ctx context.Context, name string) (ai.AIProvider, error)
}

// Options selects the model used to answer.
type Options struct {
	Provider    string   // Empty selects the default provider
	Model       string   // Empty selects the provider's default model
	Temperature *float64 // Nil selects DefaultTemperature
	MaxTokens   int      // Zero selects DefaultMaxTokens
	K           int      // Passages to retrieve; zero selects the retriever default
}

// Answer is a generated answer with the passages it was grounded on.
type Answer struct {
	Question string
	Text     string
	Passages []string
	Provider string
	Model    string
	Usage    ai.Usage
	Duration time.Duration
}

// Answerer composes retrieval and generation.
type Answerer struct {
	providers ProviderSource
	retriever *Retriever
	template  prompts.PromptTemplate
	logger    *slog.Logger
}

// Option configures an Answerer.
type Option func(*Answerer) error

// WithRetriever replaces the default retriever.
func WithRetriever(r *Retriever) Option {
	return func(a *Answerer) error {
		if r != nil {
			a.retriever = r
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Answerer) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// NewAnswerer creates a new answerer generating with providers.
func NewAnswerer(providers ProviderSource, opts ...Option) (*Answerer, error) {
	if providers == nil {
		return nil, ErrProvidersRequired
	}

	a := &Answerer{
		providers: providers,
		template:  prompts.NewPromptTemplate(QuestionTemplate, []string{"question", "context"}),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.retriever == nil {
		r, err := NewRetriever(WithRetrieverLogger(a.logger))
		if err != nil {
			return nil, err
		}
		a.retriever = r
	}
	a.logger = a.logger.With("component", "answerer")
	return a, nil
}

// Retriever returns the retriever used for passage lookup.
func (a *Answerer) Retriever() *Retriever { return a.retriever }

// Answer retrieves passages for question from idx and generates an answer.
func (a *Answerer) Answer(ctx context.Context, idx *vectorindex.Index, question string, opts Options) (*Answer, error) {
	return a.AnswerWithMonitor(ctx, idx, question, opts, nil)
}

// AnswerWithMonitor is Answer with progress callbacks.
func (a *Answerer) AnswerWithMonitor(ctx context.Context, idx *vectorindex.Index, question string, opts Options, monitor Monitor) (*Answer, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	start := time.Now()
	monitor.Start(question)

	hits, err := a.retriever.hits(ctx, idx, question, opts.K)
	if err != nil {
		return nil, err
	}
	monitor.AfterRetrieval(hits)
	passages := texts(hits)

	prompt, err := a.Prompt(question, passages)
	if err != nil {
		return nil, err
	}

	provider, err := a.providers.Provider(ctx, opts.Provider)
	if err != nil {
		return nil, err
	}

	genOpts := ai.GenerateOptions{
		Model:       opts.Model,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
	if opts.Temperature != nil {
		genOpts.Temperature = *opts.Temperature
	}
	if opts.MaxTokens > 0 {
		genOpts.MaxTokens = opts.MaxTokens
	}
	monitor.BeforeGeneration(provider.Name(), opts.Model, prompt)

	gen, err := provider.Generator().Generate(ctx, []ai.Message{ai.HumanMessage(prompt)}, genOpts)
	if err != nil {
		a.logger.Error("error generating answer", "provider", provider.Name(), "err", err)
		if ctx.Err() == nil && !errors.Is(err, core.ErrProvider) {
			err = &core.GenerationError{Provider: provider.Name(), Model: opts.Model, Err: err}
		}
		return nil, err
	}

	answer := &Answer{
		Question: question,
		Text:     gen.Text,
		Passages: passages,
		Provider: provider.Name(),
		Model:    gen.Model,
		Usage:    gen.Usage,
		Duration: time.Since(start),
	}
	a.logger.Info("answered question",
		"provider", answer.Provider,
		"model", answer.Model,
		"passages", len(passages),
		"duration", answer.Duration)
	monitor.Finish(answer)
	return answer, nil
}

// Prompt renders the question-answering prompt. Passages are separated by a
// blank line.
func (a *Answerer) Prompt(question string, passages []string) (string, error) {
	prompt, err := a.template.Format(map[string]any{
		"question": question,
		"context":  strings.Join(passages, "\n\n"),
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return prompt, nil
}

// Float returns a pointer to v, for Options.Temperature.
func Float(v float64) *float64 { return &v }
