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

// Package search answers questions about a single ingested document.
//
// A Retriever embeds the question and returns the most similar chunk texts
// from the document's vector index. An Answerer fills the question-answering
// prompt with those passages and asks a hosted model to answer:
//
//	Answer the following question based on the provided context:
//
//	Question: <question>
//
//	Context: <passage 1>
//
//	<passage 2>
//
// Retrieval that finds nothing still produces a generation with an empty
// context. Progress can be observed through a Monitor.
package search
