package storage

import (
	"testing"
	"time"

	"github.com/poiesic/pdfqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalConversation(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name string
		conv *core.Conversation
	}{
		{"full", &core.Conversation{ID: core.NewConversationID(), Title: "Quarterly report", CreatedAt: now}},
		{"untitled", &core.Conversation{ID: "01J0000000000000000000000A", CreatedAt: now}},
		{"zero time", &core.Conversation{ID: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := UnmarshalConversation(MarshalConversation(tt.conv))
			require.NoError(t, err)
			assert.Equal(t, tt.conv.ID, decoded.ID)
			assert.Equal(t, tt.conv.Title, decoded.Title)
			assert.True(t, tt.conv.CreatedAt.Equal(decoded.CreatedAt))
		})
	}
}

func TestMarshalUnmarshalMessage(t *testing.T) {
	now := time.Now().UTC()

	t.Run("human message without metadata", func(t *testing.T) {
		msg := &core.Message{
			Id:             7,
			ConversationID: "conv-1",
			Speaker:        core.SpeakerTypeHuman,
			Content:        "What is in the report?",
			Timestamp:      now,
		}
		decoded, err := UnmarshalMessage(MarshalMessage(msg))
		require.NoError(t, err)
		assert.Equal(t, msg.Id, decoded.Id)
		assert.Equal(t, msg.ConversationID, decoded.ConversationID)
		assert.Equal(t, msg.Speaker, decoded.Speaker)
		assert.Equal(t, msg.Content, decoded.Content)
		assert.True(t, msg.Timestamp.Equal(decoded.Timestamp))
		assert.Nil(t, decoded.Metadata)
	})

	t.Run("ai message with metadata", func(t *testing.T) {
		msg := &core.Message{
			Id:             8,
			ConversationID: "conv-1",
			Speaker:        core.SpeakerTypeAI,
			Content:        "Revenue grew — by 12% ✓",
			Timestamp:      now,
			Metadata: map[string]string{
				core.MetaProvider:       "gemini",
				core.MetaModel:          "gemini-pro",
				core.MetaTotalTokens:    "15",
				core.MetaResponseTimeMs: "420",
			},
		}
		data := MarshalMessage(msg)
		decoded, err := UnmarshalMessage(data)
		require.NoError(t, err)
		assert.Equal(t, msg.Content, decoded.Content)
		assert.Equal(t, msg.Metadata, decoded.Metadata)

		// Metadata order does not affect the encoding
		assert.Equal(t, data, MarshalMessage(msg))
	})
}

func TestUnmarshalMessage_Corrupt(t *testing.T) {
	msg := &core.Message{Id: 1, ConversationID: "c", Speaker: core.SpeakerTypeHuman, Content: "hello", Timestamp: time.Now()}
	data := MarshalMessage(msg)

	_, err := UnmarshalMessage(data[:len(data)-3])
	assert.Error(t, err)

	_, err = UnmarshalMessage(append(data, 0x01))
	assert.ErrorIs(t, err, ErrTruncatedData)

	_, err = UnmarshalConversation(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
