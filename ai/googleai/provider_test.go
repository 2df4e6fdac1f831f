package googleai

import (
	"context"
	"testing"

	"github.com/poiesic/pdfqa/ai"
	"github.com/poiesic/pdfqa/core"
	"github.com/stretchr/testify/assert"
)

func TestNewProvider_RequiresAPIKey(t *testing.T) {
	_, err := NewProvider(context.Background(), ai.DefaultConfig())
	assert.ErrorIs(t, err, core.ErrConfig)
	assert.ErrorIs(t, err, ai.ErrInvalidConfig)
}

func TestRegister_Alias(t *testing.T) {
	r := ai.NewRegistry()
	Register(r)

	assert.True(t, r.Has("gemini"))
	assert.True(t, r.Has("googleai"))
	assert.Equal(t, []string{"gemini"}, r.Names())
}
