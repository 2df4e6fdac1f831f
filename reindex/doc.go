// Package reindex rebuilds the vector indexes of registered documents from
// their source PDFs, typically after switching embedding provider or model.
//
// Documents are processed one at a time with retry and exponential backoff
// for provider failures, and progress is reported to a writer. A document
// that cannot be rebuilt keeps its previous index.
package reindex
