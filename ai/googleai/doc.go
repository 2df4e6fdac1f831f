// Package googleai provides the Gemini implementation of ai.AIProvider,
// backed by langchaingo's googleai client. Embeddings default to
// embedding-001 and generation to gemini-pro.
package googleai
