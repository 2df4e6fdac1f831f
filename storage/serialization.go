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

package storage

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/pdfqa/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: id: %w", ErrSerializationFailed, err)
	}
	return core.ID(v), nil
}

// MarshalConversation serializes a Conversation to bytes.
func MarshalConversation(conv *core.Conversation) []byte {
	created := timeValue(conv.CreatedAt)
	size := ord.String.Size(conv.ID) +
		ord.String.Size(conv.Title) +
		varint.Int64.Size(created)

	buf := make([]byte, size)
	n := ord.String.Marshal(conv.ID, buf)
	n += ord.String.Marshal(conv.Title, buf[n:])
	varint.Int64.Marshal(created, buf[n:])
	return buf
}

// UnmarshalConversation deserializes a Conversation from bytes.
func UnmarshalConversation(data []byte) (*core.Conversation, error) {
	r := reader{bs: data}
	conv := &core.Conversation{
		ID:    r.string(),
		Title: r.string(),
	}
	conv.CreatedAt = r.time()
	if err := r.done("conversation"); err != nil {
		return nil, err
	}
	return conv, nil
}

// MarshalMessage serializes a Message to bytes.
// Metadata keys are written in sorted order so equal messages encode identically.
func MarshalMessage(msg *core.Message) []byte {
	keys := slices.Sorted(maps.Keys(msg.Metadata))
	ts := timeValue(msg.Timestamp)

	size := varint.Uint64.Size(uint64(msg.Id)) +
		ord.String.Size(msg.ConversationID) +
		varint.Int64.Size(int64(msg.Speaker)) +
		ord.String.Size(msg.Content) +
		varint.Int64.Size(ts) +
		varint.Uint64.Size(uint64(len(keys)))
	for _, k := range keys {
		size += ord.String.Size(k) + ord.String.Size(msg.Metadata[k])
	}

	buf := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(msg.Id), buf)
	n += ord.String.Marshal(msg.ConversationID, buf[n:])
	n += varint.Int64.Marshal(int64(msg.Speaker), buf[n:])
	n += ord.String.Marshal(msg.Content, buf[n:])
	n += varint.Int64.Marshal(ts, buf[n:])
	n += varint.Uint64.Marshal(uint64(len(keys)), buf[n:])
	for _, k := range keys {
		n += ord.String.Marshal(k, buf[n:])
		n += ord.String.Marshal(msg.Metadata[k], buf[n:])
	}
	return buf
}

// UnmarshalMessage deserializes a Message from bytes.
func UnmarshalMessage(data []byte) (*core.Message, error) {
	r := reader{bs: data}
	msg := &core.Message{
		Id:             core.ID(r.uint()),
		ConversationID: r.string(),
		Speaker:        core.SpeakerType(r.int()),
		Content:        r.string(),
	}
	msg.Timestamp = r.time()

	count := r.uint()
	if r.err == nil && count > uint64(len(data)) {
		return nil, fmt.Errorf("%w: message: metadata count %d", ErrTruncatedData, count)
	}
	if count > 0 {
		msg.Metadata = make(map[string]string, count)
		for i := uint64(0); i < count && r.err == nil; i++ {
			k := r.string()
			msg.Metadata[k] = r.string()
		}
	}
	if err := r.done("message"); err != nil {
		return nil, err
	}
	return msg, nil
}

// timeValue encodes t as Unix nanoseconds; the zero time encodes as 0.
func timeValue(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// reader decodes sequential mus-go values and keeps the first error.
type reader struct {
	bs  []byte
	pos int
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) uint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.bs[r.pos:])
	if err != nil {
		r.fail(err)
		return 0
	}
	r.pos += n
	return v
}

func (r *reader) int() int64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.bs[r.pos:])
	if err != nil {
		r.fail(err)
		return 0
	}
	r.pos += n
	return v
}

func (r *reader) string() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.bs[r.pos:])
	if err != nil {
		r.fail(err)
		return ""
	}
	r.pos += n
	return v
}

func (r *reader) time() time.Time {
	ns := r.int()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

func (r *reader) done(what string) error {
	if r.err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSerializationFailed, what, r.err)
	}
	if r.pos != len(r.bs) {
		return fmt.Errorf("%w: %s: %d trailing bytes", ErrTruncatedData, what, len(r.bs)-r.pos)
	}
	return nil
}
