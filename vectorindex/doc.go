// Package vectorindex holds the per-document vector index: an ordered list of
// chunk texts and their embeddings searched by cosine similarity.
//
// An index is built in memory from a document's chunks, written to disk in one
// step and reloaded later without the original object:
//
//	idx, err := vectorindex.Build(ctx, chunks, embedder)
//	err = vectorindex.Save(idx, vectorindex.LocationFor(pdfPath))
//	idx, err = vectorindex.Load(vectorindex.LocationFor(pdfPath), embedder)
//	hits := idx.Search(queryVector, 4)
//
// # Artifact Format
//
// The file at <location>/index.faiss is a mus-go encoded body followed by a
// 32-byte BLAKE2b-256 checksum of that body:
//
//	magic "PDFQAIDX" | version | dimension | count |
//	metadata pairs | count x (text, dimension x float32) | checksum
//
// A file whose checksum does not match is treated as absent.
package vectorindex
