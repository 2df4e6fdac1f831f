package langchain

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/pdfqa/ai"
	"github.com/poiesic/pdfqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func textOf(t *testing.T, mc llms.MessageContent) string {
	t.Helper()
	require.Len(t, mc.Parts, 1)
	part, ok := mc.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestGenerator_Generate(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        "Paris",
		GenerationInfo: map[string]any{"PromptTokens": 12, "CompletionTokens": 3, "TotalTokens": 15},
	}}}}
	gen, err := NewGenerator("openai", model, "gpt-4o-mini", nil)
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), []ai.Message{
		ai.SystemMessage("be brief"),
		ai.HumanMessage("capital of France?"),
	}, ai.GenerateOptions{Temperature: 0.2, MaxTokens: 64})
	require.NoError(t, err)

	assert.Equal(t, "Paris", out.Text)
	assert.Equal(t, "gpt-4o-mini", out.Model)
	assert.Equal(t, ai.Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15}, out.Usage)

	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, "capital of France?", textOf(t, model.messages[1]))
	assert.Equal(t, "gpt-4o-mini", model.opts.Model)
	assert.InDelta(t, 0.2, model.opts.Temperature, 1e-9)
	assert.Equal(t, 64, model.opts.MaxTokens)
}

func TestGenerator_ModelOverride(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}}
	gen, err := NewGenerator("gemini", model, "gemini-pro", nil)
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), []ai.Message{ai.HumanMessage("hi")}, ai.GenerateOptions{Model: "gemini-1.5-flash"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash", out.Model)
	assert.Equal(t, "gemini-1.5-flash", model.opts.Model)
	assert.Zero(t, model.opts.MaxTokens)
}

func TestGenerator_Errors(t *testing.T) {
	t.Run("client failure", func(t *testing.T) {
		boom := errors.New("quota exceeded")
		gen, err := NewGenerator("gemini", &fakeModel{err: boom}, "gemini-pro", nil)
		require.NoError(t, err)

		_, err = gen.Generate(context.Background(), []ai.Message{ai.HumanMessage("hi")}, ai.GenerateOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrProvider)
		assert.ErrorIs(t, err, boom)

		var genErr *core.GenerationError
		require.ErrorAs(t, err, &genErr)
		assert.Equal(t, "gemini", genErr.Provider)
		assert.Equal(t, "gemini-pro", genErr.Model)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		gen, err := NewGenerator("gemini", &fakeModel{err: errors.New("request aborted")}, "gemini-pro", nil)
		require.NoError(t, err)

		_, err = gen.Generate(ctx, []ai.Message{ai.HumanMessage("hi")}, ai.GenerateOptions{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, core.ErrProvider)
	})

	t.Run("no choices", func(t *testing.T) {
		gen, err := NewGenerator("gemini", &fakeModel{resp: &llms.ContentResponse{}}, "gemini-pro", nil)
		require.NoError(t, err)

		_, err = gen.Generate(context.Background(), []ai.Message{ai.HumanMessage("hi")}, ai.GenerateOptions{})
		assert.ErrorIs(t, err, ErrEmptyResponse)
		assert.ErrorIs(t, err, core.ErrProvider)
	})

	t.Run("nil client", func(t *testing.T) {
		_, err := NewGenerator("gemini", nil, "gemini-pro", nil)
		assert.Error(t, err)
	})
}

func TestGenerator_SinglePrompt(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}}
	gen, err := NewGenerator("huggingface", model, "mistralai/Mistral-7B", nil, WithSinglePrompt())
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), []ai.Message{
		ai.SystemMessage("You are terse."),
		ai.HumanMessage("hello"),
		ai.AIMessage("hi"),
		ai.HumanMessage("how are you?"),
	}, ai.GenerateOptions{})
	require.NoError(t, err)

	require.Len(t, model.messages, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[0].Role)
	assert.Equal(t, "You are terse.\n\nUser: hello\n\nAssistant: hi\n\nhow are you?", textOf(t, model.messages[0]))
}

func TestFlatten_SingleMessage(t *testing.T) {
	assert.Equal(t, "just this", flatten([]ai.Message{ai.HumanMessage("just this")}))
}

func TestUsageFrom(t *testing.T) {
	t.Run("googleai keys", func(t *testing.T) {
		u := usageFrom(map[string]any{"input_tokens": int32(7), "output_tokens": int32(5), "total_tokens": int32(12)})
		assert.Equal(t, ai.Usage{PromptTokens: 7, CompletionTokens: 5, TotalTokens: 12}, u)
	})

	t.Run("total derived", func(t *testing.T) {
		u := usageFrom(map[string]any{"PromptTokens": 4, "CompletionTokens": 6})
		assert.Equal(t, 10, u.TotalTokens)
	})

	t.Run("missing", func(t *testing.T) {
		assert.Equal(t, ai.Usage{}, usageFrom(nil))
	})
}
