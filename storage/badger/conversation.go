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

package badger

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/pdfqa/core"
	"github.com/poiesic/pdfqa/storage"
)

// ConversationRepository implements storage.ConversationRepository for BadgerDB.
type ConversationRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(backend *Backend) (*ConversationRepository, error) {
	idSeq, err := backend.GetSequence(messageIDSeq)
	if err != nil {
		return nil, err
	}

	return &ConversationRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ConversationRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *ConversationRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// CreateConversation stores a new conversation.
func (r *ConversationRepository) CreateConversation(ctx context.Context, conv *core.Conversation) (*core.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, core.Invalid("conversation", "is required")
	}
	if conv.ID == "" {
		conv.ID = core.NewConversationID()
	}
	if strings.Contains(conv.ID, ":") {
		return nil, core.Invalid("conversation id", "must not contain ':'")
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC()
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeConversationKey(conv.ID)
		existing, err := readConversation(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return storage.ErrDuplicateKey
		}
		if err := tx.Set(key, storage.MarshalConversation(conv)); err != nil {
			return err
		}
		if err := tx.Set(makeConversationDateKey(conv.CreatedAt, conv.ID), []byte(conv.ID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversation retrieves a conversation by ID.
func (r *ConversationRepository) GetConversation(ctx context.Context, id string) (*core.Conversation, error) {
	var result *core.Conversation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readConversation(tx, makeConversationKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListConversations returns up to limit conversations, newest first.
func (r *ConversationRepository) ListConversations(ctx context.Context, limit int) ([]*core.Conversation, error) {
	var results []*core.Conversation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent conversations first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(conversationDatePrefix + ":")
		// Seek past the end of the prefix range
		seek := append(slices.Clone(prefix), 0xff)

		for iter.Seek(seek); iter.ValidForPrefix(prefix); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			var id string
			if err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			conv, err := readConversation(tx, makeConversationKey(id))
			if err != nil {
				return err
			}
			if conv != nil {
				results = append(results, conv)
			}
		}
		return nil
	}, false)
	return results, err
}

// DeleteConversation removes a conversation and all of its messages.
func (r *ConversationRepository) DeleteConversation(ctx context.Context, id string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeConversationKey(id)
		conv, err := readConversation(tx, key)
		if err != nil {
			return err
		}
		if conv == nil {
			return storage.ErrNotFound
		}

		// Collect first; deleting while iterating invalidates the iterator
		var keys [][]byte
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := makeMessagePrefix(id)
		iter := tx.NewIterator(opts)
		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		keys = append(keys, makeConversationDateKey(conv.CreatedAt, conv.ID), key)
		for _, k := range keys {
			if err := tx.Delete(k); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// AddMessages appends messages to their conversations.
func (r *ConversationRepository) AddMessages(ctx context.Context, messages ...*core.Message) ([]*core.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for _, msg := range messages {
		if msg.Timestamp.IsZero() {
			msg.Timestamp = now
		}
		if err := msg.Validate(); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		checked := make(map[string]bool)
		for _, msg := range messages {
			if !checked[msg.ConversationID] {
				conv, err := readConversation(tx, makeConversationKey(msg.ConversationID))
				if err != nil {
					return err
				}
				if conv == nil {
					return storage.ErrNotFound
				}
				checked[msg.ConversationID] = true
			}

			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			msg.Id = core.ID(nextID)

			key := makeMessageKey(msg.ConversationID, msg.Id)
			if err := tx.Set(key, storage.MarshalMessage(msg)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// GetMessages returns every message of a conversation in the order they were added.
func (r *ConversationRepository) GetMessages(ctx context.Context, conversationID string) ([]*core.Message, error) {
	return r.scanMessages(conversationID, 0)
}

// GetRecentMessages returns the last limit messages of a conversation, oldest first.
func (r *ConversationRepository) GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]*core.Message, error) {
	if limit <= 0 {
		return []*core.Message{}, nil
	}
	return r.scanMessages(conversationID, limit)
}

// scanMessages reads a conversation's messages. A positive limit walks the
// keys backwards and keeps the newest ones.
func (r *ConversationRepository) scanMessages(conversationID string, limit int) ([]*core.Message, error) {
	results := []*core.Message{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		conv, err := readConversation(tx, makeConversationKey(conversationID))
		if err != nil {
			return err
		}
		if conv == nil {
			return storage.ErrNotFound
		}

		prefix := makeMessagePrefix(conversationID)
		opts := badger.DefaultIteratorOptions
		seek := prefix
		if limit > 0 {
			opts.Reverse = true
			seek = append(slices.Clone(prefix), 0xff)
		}
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(seek); iter.ValidForPrefix(prefix); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			var msg *core.Message
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				msg, err = storage.UnmarshalMessage(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, msg)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		slices.Reverse(results)
	}
	return results, nil
}

// Helper methods

// readConversation reads a conversation from the transaction.
func readConversation(tx *badger.Txn, key []byte) (*core.Conversation, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var conv *core.Conversation
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		conv, unmarshalErr = storage.UnmarshalConversation(val)
		return unmarshalErr
	})
	return conv, err
}
