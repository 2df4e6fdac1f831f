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

// Package storage defines the persistence abstraction for chat history.
//
// ConversationRepository decouples the chat service from the storage engine.
// The BadgerDB implementation lives in storage/badger:
//
//	backend, err := badger.OpenBackend("/path/to/data/conversations", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	repo, err := badger.NewConversationRepository(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// Tests use badger.NewMemoryRepository for an in-memory store.
//
// Records are encoded with mus-go. Messages are keyed by conversation and a
// sequence-generated ID, so a prefix scan returns them in insertion order.
//
// All repository implementations must be thread-safe. Missing records fail
// with ErrNotFound, which matches core.ErrNotFound.
package storage
