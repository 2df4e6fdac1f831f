package mock

import (
	"context"
	"math"
	"testing"

	"github.com/poiesic/pdfqa/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	a, err := m.EmbedText(ctx, "hello")
	require.NoError(t, err)
	b, err := m.EmbedText(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, DefaultDimension)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
	assert.Equal(t, 2, m.CallCount())

	_, err = m.EmbedTexts(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 5, m.TextCount())

	m.Reset()
	assert.Zero(t, m.CallCount())
}

func TestKeywordEmbedder(t *testing.T) {
	k := NewKeywordEmbedder("alpha", "beta")

	vecs, err := k.EmbedTexts(context.Background(), []string{"Alpha alpha, beta!", "nothing here"})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 1}, vecs[0])
	assert.Equal(t, []float32{0, 0}, vecs[1])
}

func TestMockGenerator_Records(t *testing.T) {
	g := NewMockGenerator("reply")
	out, err := g.Generate(context.Background(), []ai.Message{ai.HumanMessage("q")}, ai.GenerateOptions{Model: "m", Temperature: 0.5})
	require.NoError(t, err)

	assert.Equal(t, "reply", out.Text)
	assert.Equal(t, "m", out.Model)
	assert.Equal(t, 1, g.CallCount())
	assert.Equal(t, "q", g.LastCall().Messages[0].Content)
	assert.InDelta(t, 0.5, g.LastCall().Options.Temperature, 1e-9)
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	mp, ok := p.(*MockProvider)
	require.True(t, ok)

	assert.Equal(t, "mock", p.Name())
	assert.NotNil(t, mp.GetMockEmbedder())
	assert.NotNil(t, mp.GetMockGenerator())
	require.NoError(t, p.Close())
	assert.True(t, mp.Closed())
}
