package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/pdfqa/core"
)

// Key prefixes for different data types
const (
	conversationPrefix     = "conv"
	conversationDatePrefix = "convd"
	messagePrefix          = "msg"
	messageIDSeq           = "msgseq"
)

// makeConversationKey generates a key for a conversation by ID.
func makeConversationKey(id string) []byte {
	return []byte(conversationPrefix + ":" + id)
}

// makeConversationDateKey generates a composite key for the creation-time index.
// Format: prefix:timestamp:id
func makeConversationDateKey(createdAt time.Time, id string) []byte {
	prefix := []byte(conversationDatePrefix + ":")
	buf := make([]byte, len(prefix)+8+len(id))
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], id)
	return buf
}

// makeMessagePrefix generates the key prefix shared by a conversation's messages.
// Format: prefix:conversationID:
func makeMessagePrefix(conversationID string) []byte {
	return []byte(messagePrefix + ":" + conversationID + ":")
}

// makeMessageKey generates a key for a message within its conversation.
// Format: prefix:conversationID:id
func makeMessageKey(conversationID string, id core.ID) []byte {
	prefix := makeMessagePrefix(conversationID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Sequence IDs in BigEndian keep messages in insertion order
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
