package core

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a unique identifier for stored chat messages.
// It is generated from database sequences.
type ID uint64

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewDocumentID returns a new opaque document identifier.
// IDs are ULIDs: lexically sortable by creation time and monotonic within the process,
// with a random component so that two uploads in the same millisecond never collide.
func NewDocumentID() string {
	return newULID(time.Now())
}

// NewConversationID returns a new opaque conversation identifier.
func NewConversationID() string {
	return newULID(time.Now())
}

func newULID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Document is an ingested PDF together with the location of its vector index.
type Document struct {
	ID         string
	SourcePath string    // Where the original PDF is stored
	IndexPath  string    // Where the persisted vector index lives (extension-less source path)
	Filename   string    // Stored file name
	UploadedAt time.Time // When ingestion completed
	PageCount  int
}

// Chunk is a bounded, overlapping slice of a document's text sized for embedding.
// Start and End are rune offsets into the joined document text.
type Chunk struct {
	DocumentID string
	Sequence   int
	Text       string
	Start      int
	End        int
}

// SpeakerType identifies the source of a chat message.
type SpeakerType int

const (
	// SpeakerTypeHuman represents a human user.
	SpeakerTypeHuman SpeakerType = iota + 1
	// SpeakerTypeAI represents an AI assistant.
	SpeakerTypeAI
)

// String returns the lowercase role name.
func (s SpeakerType) String() string {
	switch s {
	case SpeakerTypeHuman:
		return "human"
	case SpeakerTypeAI:
		return "ai"
	default:
		return "unknown"
	}
}

// Conversation groups chat messages exchanged with a model provider.
type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
}

// Message is a single turn of a conversation.
type Message struct {
	Id             ID
	ConversationID string
	Speaker        SpeakerType
	Content        string
	Timestamp      time.Time         // When the message was sent or received
	Metadata       map[string]string // Provider, model, token usage and timing for AI messages
}

// Metadata keys recorded on AI messages.
const (
	MetaProvider         = "provider"
	MetaModel            = "model"
	MetaTemperature      = "temperature"
	MetaPromptTokens     = "prompt_tokens"
	MetaCompletionTokens = "completion_tokens"
	MetaTotalTokens      = "total_tokens"
	MetaResponseTimeMs   = "response_time_ms"
)
