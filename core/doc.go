// Package core holds the domain model shared by every pdfqa package:
// documents, chunks, conversations and messages, plus the error taxonomy
// the request boundary uses to pick a status code.
package core
