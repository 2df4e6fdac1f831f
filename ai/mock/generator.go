package mock

import (
	"context"
	"sync"

	"github.com/poiesic/pdfqa/ai"
)

// GenerateCall captures the arguments of one Generate invocation.
type GenerateCall struct {
	Messages []ai.Message
	Options  ai.GenerateOptions
}

// MockGenerator is a test double for ai.Generator that records every call.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, Generate returns Reply with fixed token usage.
	GenerateFunc func(ctx context.Context, messages []ai.Message, opts ai.GenerateOptions) (*ai.Generation, error)

	// Reply is the default response text.
	Reply string

	mu    sync.Mutex
	calls []GenerateCall
}

// NewMockGenerator creates a mock generator that answers with reply.
func NewMockGenerator(reply string) *MockGenerator {
	return &MockGenerator{Reply: reply}
}

// Generate records the call and returns the configured reply.
func (m *MockGenerator) Generate(ctx context.Context, messages []ai.Message, opts ai.GenerateOptions) (*ai.Generation, error) {
	m.mu.Lock()
	m.calls = append(m.calls, GenerateCall{Messages: append([]ai.Message(nil), messages...), Options: opts})
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, messages, opts)
	}
	return &ai.Generation{
		Text:  m.Reply,
		Model: opts.Model,
		Usage: ai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

// Calls returns a copy of the recorded calls.
func (m *MockGenerator) Calls() []GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GenerateCall(nil), m.calls...)
}

// CallCount returns the number of Generate calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastCall returns the most recent call. It panics if there were none.
func (m *MockGenerator) LastCall() GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}
