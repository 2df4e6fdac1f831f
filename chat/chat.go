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

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/pdfqa/ai"
	"github.com/poiesic/pdfqa/core"
	"github.com/poiesic/pdfqa/storage"
)

// Chat defaults applied when a Request leaves them unset.
const (
	DefaultSystemPrompt      = "You are a helpful AI assistant."
	DefaultTemperature       = 0.7
	DefaultMaxTokens         = 1024
	DefaultHistoryLimit      = 20
	DefaultConversationTitle = "New Conversation"
)

// ProviderSource resolves a provider key to a live provider.
// An empty key selects the default provider.
type ProviderSource interface {
	Provider(ctx context.Context, name string) (ai.AIProvider, error)
}

// Request is a single chat turn.
type Request struct {
	Provider       string
	Model          string
	SystemPrompt   string
	UserPrompt     string
	Temperature    *float64
	MaxTokens      int
	ConversationID string // Empty starts a new conversation

	// History replaces the stored conversation history when non-nil.
	History []ai.Message
}

// Response is the model's reply to a Request.
type Response struct {
	Text           string
	ConversationID string
	MessageID      core.ID
	Provider       string
	Model          string
	Usage          ai.Usage
	Duration       time.Duration
}

// Service runs chat turns against hosted models and records them.
type Service struct {
	providers    ProviderSource
	repository   storage.ConversationRepository
	scenarios    map[string]Scenario
	historyLimit int
	logger       *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithScenarios replaces the built-in scenario presets.
func WithScenarios(scenarios ...Scenario) Option {
	return func(s *Service) error {
		s.scenarios = make(map[string]Scenario, len(scenarios))
		for _, sc := range scenarios {
			if sc.Name == "" {
				return core.Invalid("scenario name", "is required")
			}
			s.scenarios[strings.ToLower(sc.Name)] = sc
		}
		return nil
	}
}

// WithScenarioDefaults points every scenario at provider and model, for
// deployments whose default provider is not the presets' own.
func WithScenarioDefaults(provider, model string) Option {
	return func(s *Service) error {
		for name, sc := range s.scenarios {
			sc.DefaultProvider = provider
			sc.DefaultModel = model
			s.scenarios[name] = sc
		}
		return nil
	}
}

// WithHistoryLimit caps the number of stored messages sent as context.
// Default is DefaultHistoryLimit. Zero sends no history.
func WithHistoryLimit(limit int) Option {
	return func(s *Service) error {
		if limit < 0 {
			return core.Invalid("history limit", "cannot be negative")
		}
		s.historyLimit = limit
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates a new chat service.
func NewService(providers ProviderSource, repository storage.ConversationRepository, opts ...Option) (*Service, error) {
	if providers == nil {
		return nil, ErrProvidersRequired
	}
	if repository == nil {
		return nil, ErrRepositoryRequired
	}

	s := &Service{
		providers:    providers,
		repository:   repository,
		historyLimit: DefaultHistoryLimit,
		logger:       slog.Default(),
	}
	if err := WithScenarios(DefaultScenarios()...)(s); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "chat")
	return s, nil
}

// Chat sends the user prompt, with the conversation history, to the selected
// provider. Both the prompt and the reply are stored in the conversation,
// which is created when req.ConversationID is empty.
func (s *Service) Chat(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.UserPrompt) == "" {
		return nil, ErrPromptRequired
	}

	provider, err := s.providers.Provider(ctx, req.Provider)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversation(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}

	history := req.History
	if history == nil {
		history, err = s.history(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
	}

	if _, err := s.repository.AddMessages(ctx, &core.Message{
		ConversationID: conv.ID,
		Speaker:        core.SpeakerTypeHuman,
		Content:        req.UserPrompt,
	}); err != nil {
		return nil, err
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.SystemMessage(systemPrompt))
	messages = append(messages, history...)
	messages = append(messages, ai.HumanMessage(req.UserPrompt))

	opts := ai.GenerateOptions{
		Model:       req.Model,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
	if req.Temperature != nil {
		opts.Temperature = *req.Temperature
	}
	if req.MaxTokens > 0 {
		opts.MaxTokens = req.MaxTokens
	}

	start := time.Now()
	gen, err := provider.Generator().Generate(ctx, messages, opts)
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Error("error generating chat response", "provider", provider.Name(), "conversation", conv.ID, "err", err)
		if ctx.Err() == nil && !errors.Is(err, core.ErrProvider) {
			err = &core.GenerationError{Provider: provider.Name(), Model: req.Model, Err: err}
		}
		return nil, err
	}

	model := gen.Model
	if model == "" {
		model = req.Model
	}
	reply := &core.Message{
		ConversationID: conv.ID,
		Speaker:        core.SpeakerTypeAI,
		Content:        gen.Text,
		Metadata: map[string]string{
			core.MetaProvider:         provider.Name(),
			core.MetaModel:            model,
			core.MetaTemperature:      strconv.FormatFloat(opts.Temperature, 'f', -1, 64),
			core.MetaPromptTokens:     strconv.Itoa(gen.Usage.PromptTokens),
			core.MetaCompletionTokens: strconv.Itoa(gen.Usage.CompletionTokens),
			core.MetaTotalTokens:      strconv.Itoa(gen.Usage.TotalTokens),
			core.MetaResponseTimeMs:   strconv.FormatInt(elapsed.Milliseconds(), 10),
		},
	}
	if reply.Content == "" {
		// Stored messages cannot be empty
		reply.Content = " "
	}
	if _, err := s.repository.AddMessages(ctx, reply); err != nil {
		return nil, err
	}

	s.logger.Info("chat response generated",
		"conversation", conv.ID,
		"provider", provider.Name(),
		"model", model,
		"tokens", gen.Usage.TotalTokens,
		"duration", elapsed)

	return &Response{
		Text:           gen.Text,
		ConversationID: conv.ID,
		MessageID:      reply.Id,
		Provider:       provider.Name(),
		Model:          model,
		Usage:          gen.Usage,
		Duration:       elapsed,
	}, nil
}

// Scenario runs a chat turn with the named preset filling every field the
// request leaves unset.
func (s *Service) Scenario(ctx context.Context, name string, req Request) (*Response, error) {
	sc, ok := s.scenarios[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownScenario, name, strings.Join(s.scenarioNames(), ", "))
	}
	return s.Chat(ctx, sc.apply(req))
}

// Scenarios returns the configured presets sorted by name.
func (s *Service) Scenarios() []Scenario {
	return sortedScenarios(s.scenarios)
}

// CreateConversation starts an empty conversation.
func (s *Service) CreateConversation(ctx context.Context, title string) (*core.Conversation, error) {
	if strings.TrimSpace(title) == "" {
		title = DefaultConversationTitle
	}
	conv, err := s.repository.CreateConversation(ctx, &core.Conversation{Title: title})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("created conversation", "conversation", conv.ID)
	return conv, nil
}

// Conversations returns every conversation, newest first.
func (s *Service) Conversations(ctx context.Context) ([]*core.Conversation, error) {
	return s.repository.ListConversations(ctx, 0)
}

// Messages returns the messages of a conversation in order.
func (s *Service) Messages(ctx context.Context, conversationID string) ([]*core.Message, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, core.Invalid("conversationId", "is required")
	}
	return s.repository.GetMessages(ctx, conversationID)
}

func (s *Service) conversation(ctx context.Context, id string) (*core.Conversation, error) {
	if id == "" {
		return s.CreateConversation(ctx, "")
	}
	return s.repository.GetConversation(ctx, id)
}

func (s *Service) history(ctx context.Context, conversationID string) ([]ai.Message, error) {
	if s.historyLimit == 0 {
		return nil, nil
	}
	stored, err := s.repository.GetRecentMessages(ctx, conversationID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	history := make([]ai.Message, 0, len(stored))
	for _, msg := range stored {
		switch msg.Speaker {
		case core.SpeakerTypeHuman:
			history = append(history, ai.HumanMessage(msg.Content))
		case core.SpeakerTypeAI:
			history = append(history, ai.AIMessage(msg.Content))
		}
	}
	return history, nil
}

func (s *Service) scenarioNames() []string {
	scenarios := s.Scenarios()
	names := make([]string, len(scenarios))
	for i, sc := range scenarios {
		names[i] = sc.Name
	}
	return names
}
