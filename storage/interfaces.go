package storage

import (
	"context"

	"github.com/poiesic/pdfqa/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ConversationRepository provides operations for managing chat conversations
// and their messages.
type ConversationRepository interface {
	Repository

	// CreateConversation stores a new conversation.
	// Generates an ID when conv.ID is empty and sets CreatedAt if not already set.
	// Returns ErrDuplicateKey if a conversation with the same ID exists.
	CreateConversation(ctx context.Context, conv *core.Conversation) (*core.Conversation, error)

	// GetConversation retrieves a conversation by ID.
	// Returns ErrNotFound if the conversation doesn't exist.
	GetConversation(ctx context.Context, id string) (*core.Conversation, error)

	// ListConversations returns up to limit conversations, newest first.
	// A limit <= 0 returns all of them.
	ListConversations(ctx context.Context, limit int) ([]*core.Conversation, error)

	// DeleteConversation removes a conversation and all of its messages.
	// Returns ErrNotFound if the conversation doesn't exist.
	DeleteConversation(ctx context.Context, id string) error

	// AddMessages appends messages to their conversations.
	// IDs are generated from a sequence and a zero Timestamp is set to now.
	// Returns ErrNotFound if a referenced conversation doesn't exist.
	AddMessages(ctx context.Context, messages ...*core.Message) ([]*core.Message, error)

	// GetMessages returns every message of a conversation in the order they were added.
	GetMessages(ctx context.Context, conversationID string) ([]*core.Message, error)

	// GetRecentMessages returns the last limit messages of a conversation,
	// oldest first.
	GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]*core.Message, error)
}
