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

// Package ai provides abstractions for the model services used by pdfqa.
//
// The package defines interfaces for text embeddings and text generation so
// the ingestion, retrieval and chat layers depend on capabilities rather than
// vendor SDKs.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Generator: Produces completions from a conversation
//   - AIProvider: Aggregates both behind one configuration
//
// Providers are selected by string key through a Registry. Each
// implementation package exposes Register to add itself:
//
//	reg := ai.NewRegistry()
//	googleai.Register(reg)
//	openai.Register(reg)
//	huggingface.Register(reg)
//
//	provider, err := reg.New(ctx, ai.NewConfig(ai.WithAPIKey(key)))
//
// # Implementation Packages
//
//   - ai/googleai: Gemini (also registered as "googleai")
//   - ai/openai: OpenAI and OpenAI-compatible hosts
//   - ai/huggingface: Hugging Face inference, generation only
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public provider constructors return the ai.AIProvider interface. Test
// utility constructors in ai/mock return concrete types so tests can inspect
// recorded calls.
//
// # Batching
//
// BatchEmbedder wraps any Embedder and splits large inputs into
// provider-sized requests run on a bounded worker pool. Every call waits for
// its requests before returning; no work outlives the caller.
package ai
