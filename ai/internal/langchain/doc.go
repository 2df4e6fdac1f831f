// Package langchain adapts langchaingo clients to the ai.Embedder and
// ai.Generator interfaces. Provider packages build the vendor client and
// hand it to NewEmbedder or NewGenerator.
package langchain
