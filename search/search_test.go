package search

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/poiesic/pdfqa/ai"
	"github.com/poiesic/pdfqa/ai/mock"
	"github.com/poiesic/pdfqa/core"
	"github.com/poiesic/pdfqa/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, texts ...string) *vectorindex.Index {
	t.Helper()
	chunks := make([]core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = core.Chunk{Sequence: i, Text: text}
	}
	embedder := mock.NewKeywordEmbedder("apple", "banana", "cherry", "durian", "elderberry")
	idx, err := vectorindex.Build(context.Background(), chunks, embedder)
	require.NoError(t, err)
	return idx
}

func setupAnswerer(t *testing.T) (*Answerer, *mock.MockGenerator) {
	t.Helper()
	gen := mock.NewMockGenerator("the answer")
	provider := mock.NewMockProviderWithServices("mock", mock.NewMockEmbedder(), gen)

	reg := ai.NewRegistry()
	reg.Register("mock", mock.Factory(provider))
	providers, err := ai.NewProviders(reg,
		ai.WithDefaultProvider("mock"),
		ai.WithProviderConfig(&ai.Config{Provider: "mock", GenerationModel: "mock-model"}),
	)
	require.NoError(t, err)

	answerer, err := NewAnswerer(providers)
	require.NoError(t, err)
	return answerer, gen
}

// recordingMonitor captures callbacks.
type recordingMonitor struct {
	events   []string
	hits     []vectorindex.Hit
	prompt   string
	provider string
	answer   *Answer
}

func (m *recordingMonitor) Start(string) { m.events = append(m.events, "start") }
func (m *recordingMonitor) AfterRetrieval(hits []vectorindex.Hit) {
	m.events = append(m.events, "retrieval")
	m.hits = hits
}
func (m *recordingMonitor) BeforeGeneration(provider, _, prompt string) {
	m.events = append(m.events, "generation")
	m.provider = provider
	m.prompt = prompt
}
func (m *recordingMonitor) Finish(a *Answer) {
	m.events = append(m.events, "finish")
	m.answer = a
}

func TestNewRetriever(t *testing.T) {
	r, err := NewRetriever()
	require.NoError(t, err)
	assert.Equal(t, DefaultK, r.k)

	r, err = NewRetriever(WithDefaultK(2), WithRetrieverLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, 2, r.k)

	r, err = NewRetriever(WithDefaultK(-1))
	require.NoError(t, err)
	assert.Equal(t, DefaultK, r.k)
}

func TestRetrieve(t *testing.T) {
	idx := buildIndex(t,
		"apple apple",
		"banana",
		"cherry",
		"apple banana",
		"durian",
		"elderberry",
	)
	r, err := NewRetriever()
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("ranks by similarity", func(t *testing.T) {
		passages, err := r.Retrieve(ctx, idx, "apple", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"apple apple", "apple banana"}, passages)
	})

	t.Run("k <= 0 uses default", func(t *testing.T) {
		passages, err := r.Retrieve(ctx, idx, "apple", 0)
		require.NoError(t, err)
		assert.Len(t, passages, DefaultK)
	})

	t.Run("k larger than index", func(t *testing.T) {
		passages, err := r.Retrieve(ctx, idx, "cherry", 50)
		require.NoError(t, err)
		assert.Len(t, passages, 6)
		assert.Equal(t, "cherry", passages[0])
	})

	t.Run("empty question", func(t *testing.T) {
		_, err := r.Retrieve(ctx, idx, "  ", 2)
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("nil index", func(t *testing.T) {
		_, err := r.Retrieve(ctx, nil, "apple", 2)
		assert.ErrorIs(t, err, ErrIndexRequired)
	})
}

func TestNewAnswerer(t *testing.T) {
	_, err := NewAnswerer(nil)
	assert.Equal(t, ErrProvidersRequired, err)

	answerer, _ := setupAnswerer(t)
	assert.NotNil(t, answerer.Retriever())

	custom, err := NewRetriever(WithDefaultK(1))
	require.NoError(t, err)
	reg := ai.NewRegistry()
	providers, err := ai.NewProviders(reg)
	require.NoError(t, err)
	answerer, err = NewAnswerer(providers, WithRetriever(custom), WithLogger(slog.Default()))
	require.NoError(t, err)
	assert.Same(t, custom, answerer.Retriever())
}

func TestPrompt(t *testing.T) {
	answerer, _ := setupAnswerer(t)

	prompt, err := answerer.Prompt("What is X?", []string{"first passage", "second passage"})
	require.NoError(t, err)
	assert.Equal(t, "Answer the following question based on the provided context:\n\n"+
		"Question: What is X?\n\n"+
		"Context: first passage\n\nsecond passage", prompt)
}

// Answer cannot reach generation with zero passages: Build and Load reject
// empty indexes and k is at least 1, so every retrieval returns a hit. The
// empty-context prompt is still well formed should a caller hand Prompt no
// passages.
func TestPrompt_NoPassages(t *testing.T) {
	answerer, _ := setupAnswerer(t)

	prompt, err := answerer.Prompt("What is X?", nil)
	require.NoError(t, err)
	assert.Equal(t, "Answer the following question based on the provided context:\n\n"+
		"Question: What is X?\n\n"+
		"Context: ", prompt)

	_, err = vectorindex.Build(context.Background(), nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, vectorindex.ErrEmptyDocument)
}

func TestAnswer_UnrelatedQuestionStillRetrieves(t *testing.T) {
	answerer, gen := setupAnswerer(t)
	idx := buildIndex(t, "apple pie recipe")

	answer, err := answerer.Answer(context.Background(), idx, "what is the capital of France?", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"apple pie recipe"}, answer.Passages)
	assert.Contains(t, gen.LastCall().Messages[0].Content, "Context: apple pie recipe")
}

func TestAnswer(t *testing.T) {
	answerer, gen := setupAnswerer(t)
	idx := buildIndex(t, "apple pie recipe", "banana bread", "cherry tart")
	monitor := &recordingMonitor{}

	answer, err := answerer.AnswerWithMonitor(context.Background(), idx, "how to make apple pie?", Options{K: 1}, monitor)
	require.NoError(t, err)

	assert.Equal(t, "the answer", answer.Text)
	assert.Equal(t, []string{"apple pie recipe"}, answer.Passages)
	assert.Equal(t, "mock", answer.Provider)
	assert.Equal(t, 15, answer.Usage.TotalTokens)

	require.Equal(t, 1, gen.CallCount())
	call := gen.LastCall()
	require.Len(t, call.Messages, 1)
	assert.Equal(t, ai.RoleHuman, call.Messages[0].Role)
	assert.Contains(t, call.Messages[0].Content, "Question: how to make apple pie?")
	assert.Contains(t, call.Messages[0].Content, "Context: apple pie recipe")
	assert.Equal(t, DefaultTemperature, call.Options.Temperature)
	assert.Equal(t, DefaultMaxTokens, call.Options.MaxTokens)
	assert.Empty(t, call.Options.Model)

	assert.Equal(t, []string{"start", "retrieval", "generation", "finish"}, monitor.events)
	assert.Len(t, monitor.hits, 1)
	assert.Equal(t, "mock", monitor.provider)
	assert.Equal(t, call.Messages[0].Content, monitor.prompt)
	assert.Same(t, answer, monitor.answer)
}

func TestAnswer_Overrides(t *testing.T) {
	answerer, gen := setupAnswerer(t)
	idx := buildIndex(t, "apple", "banana")

	_, err := answerer.Answer(context.Background(), idx, "apple?", Options{
		Model:       "bigger-model",
		Temperature: Float(0),
		MaxTokens:   64,
	})
	require.NoError(t, err)

	opts := gen.LastCall().Options
	assert.Equal(t, "bigger-model", opts.Model)
	assert.Zero(t, opts.Temperature)
	assert.Equal(t, 64, opts.MaxTokens)
}

func TestAnswer_UnknownProvider(t *testing.T) {
	answerer, gen := setupAnswerer(t)
	idx := buildIndex(t, "apple")

	_, err := answerer.Answer(context.Background(), idx, "apple?", Options{Provider: "nope"})
	assert.ErrorIs(t, err, ai.ErrUnknownProvider)
	assert.Zero(t, gen.CallCount())
}

func TestAnswer_GenerationFailure(t *testing.T) {
	answerer, gen := setupAnswerer(t)
	gen.GenerateFunc = func(context.Context, []ai.Message, ai.GenerateOptions) (*ai.Generation, error) {
		return nil, errors.New("upstream unavailable")
	}
	idx := buildIndex(t, "apple")

	_, err := answerer.Answer(context.Background(), idx, "apple?", Options{})
	require.Error(t, err)

	var genErr *core.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "mock", genErr.Provider)
	assert.ErrorIs(t, err, core.ErrProvider)
	assert.Equal(t, 502, core.HTTPStatus(err))
}

func TestAnswer_EmbeddingFailure(t *testing.T) {
	answerer, gen := setupAnswerer(t)

	embedder := mock.NewMockEmbedder()
	idx, err := vectorindex.Build(context.Background(), []core.Chunk{{Text: "apple"}}, embedder)
	require.NoError(t, err)
	embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return nil, &core.EmbeddingError{Provider: "mock", Index: -1, Err: errors.New("quota")}
	}

	_, err = answerer.Answer(context.Background(), idx, "apple?", Options{})
	assert.ErrorIs(t, err, core.ErrProvider)
	assert.Zero(t, gen.CallCount())
}
