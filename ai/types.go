package ai

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
)

// Message is a single turn sent to a Generator.
type Message struct {
	Role    Role
	Content string
}

// SystemMessage returns a system instruction message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// HumanMessage returns a user message.
func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

// AIMessage returns a prior model reply.
func AIMessage(content string) Message {
	return Message{Role: RoleAI, Content: content}
}

// GenerateOptions tunes a single generation call.
type GenerateOptions struct {
	// Model overrides the provider's default generation model when non-empty.
	Model string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens caps the completion length. Zero leaves the provider default.
	MaxTokens int
}

// Usage reports token accounting for a generation, when the provider exposes it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Generation is the result of a Generator call.
type Generation struct {
	Text  string
	Model string
	Usage Usage
}
