package langchain

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/pdfqa/ai"
	"github.com/poiesic/pdfqa/core"
	"github.com/tmc/langchaingo/llms"
)

// ErrEmptyResponse indicates the model returned no choices.
var ErrEmptyResponse = errors.New("no choices returned from model")

// Generator implements ai.Generator over a langchaingo model.
type Generator struct {
	provider     string
	client       llms.Model
	defaultModel string
	singlePrompt bool
	logger       *slog.Logger
}

var _ ai.Generator = (*Generator)(nil)

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithSinglePrompt flattens the conversation into one human message for
// backends that only read the first message part.
func WithSinglePrompt() GeneratorOption {
	return func(g *Generator) {
		g.singlePrompt = true
	}
}

// NewGenerator wraps client. defaultModel is used when a call names no model.
func NewGenerator(provider string, client llms.Model, defaultModel string, logger *slog.Logger, opts ...GeneratorOption) (*Generator, error) {
	if client == nil {
		return nil, errors.New("model client required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Generator{
		provider:     provider,
		client:       client,
		defaultModel: defaultModel,
		logger:       logger.With("component", provider+"-generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate sends messages to the model and returns the first choice.
func (g *Generator) Generate(ctx context.Context, messages []ai.Message, opts ai.GenerateOptions) (*ai.Generation, error) {
	model := opts.Model
	if model == "" {
		model = g.defaultModel
	}

	var content []llms.MessageContent
	if g.singlePrompt {
		content = []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, flatten(messages))}
	} else {
		content = make([]llms.MessageContent, 0, len(messages))
		for _, msg := range messages {
			content = append(content, llms.TextParts(messageType(msg.Role), msg.Content))
		}
	}

	callOpts := []llms.CallOption{
		llms.WithModel(model),
		llms.WithTemperature(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	g.logger.Debug("generating content", "model", model, "messages", len(messages))
	response, err := g.client.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		// cancellation belongs to the caller, not the provider
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		g.logger.Error("failed to generate content", "model", model, "err", err)
		return nil, &core.GenerationError{Provider: g.provider, Model: model, Err: err}
	}
	if len(response.Choices) == 0 {
		return nil, &core.GenerationError{Provider: g.provider, Model: model, Err: ErrEmptyResponse}
	}

	choice := response.Choices[0]
	return &ai.Generation{
		Text:  choice.Content,
		Model: model,
		Usage: usageFrom(choice.GenerationInfo),
	}, nil
}

func messageType(role ai.Role) llms.ChatMessageType {
	switch role {
	case ai.RoleSystem:
		return llms.ChatMessageTypeSystem
	case ai.RoleAI:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// flatten renders a conversation as a single prompt. The final human turn is
// left unlabeled so a lone message passes through unchanged.
func flatten(messages []ai.Message) string {
	if len(messages) == 1 {
		return messages[0].Content
	}
	var sb strings.Builder
	for i, msg := range messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		last := i == len(messages)-1
		switch {
		case msg.Role == ai.RoleSystem:
			sb.WriteString(msg.Content)
		case msg.Role == ai.RoleAI:
			sb.WriteString("Assistant: ")
			sb.WriteString(msg.Content)
		case last:
			sb.WriteString(msg.Content)
		default:
			sb.WriteString("User: ")
			sb.WriteString(msg.Content)
		}
	}
	return sb.String()
}

// Token counter keys differ between langchaingo backends.
var (
	promptKeys     = []string{"PromptTokens", "input_tokens", "prompt_tokens"}
	completionKeys = []string{"CompletionTokens", "output_tokens", "completion_tokens"}
	totalKeys      = []string{"TotalTokens", "total_tokens"}
)

func usageFrom(info map[string]any) ai.Usage {
	usage := ai.Usage{
		PromptTokens:     lookupInt(info, promptKeys),
		CompletionTokens: lookupInt(info, completionKeys),
		TotalTokens:      lookupInt(info, totalKeys),
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return usage
}

func lookupInt(info map[string]any, keys []string) int {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		case float32:
			return int(v)
		}
	}
	return 0
}
