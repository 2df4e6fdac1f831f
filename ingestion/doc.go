// Package ingestion turns an uploaded PDF into a registered, searchable document.
//
// The Pipeline runs each upload through a strict sequence:
//   - Extract page text
//   - Split the text into overlapping chunks
//   - Embed the chunks and build a vector index
//   - Save the index next to the stored PDF
//   - Register the document
//
// Embedding runs on a bounded worker pool that the call waits for, so all
// work completes before Ingest returns. When any step fails nothing is
// registered, and the index and source files written by that call are removed.
package ingestion
