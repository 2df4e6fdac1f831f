// Package registry keeps the durable mapping from document id to the
// location of its source PDF and vector index.
//
// The mapping lives in a single JSON file, pdf_metadata.json, inside the
// upload directory. Every mutation reads the whole file, changes it and
// writes it back through a temporary file and rename while holding the
// registry mutex, so concurrent registrations never lose each other's
// entries and readers never see a torn file.
//
// Lookup falls back to RecoverByScan when an id is missing: if exactly one
// PDF in the upload directory has a valid index and no entry references it,
// that PDF is registered under the requested id.
package registry
