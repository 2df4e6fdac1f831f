// Package huggingface provides a generation-only ai.AIProvider over the
// Hugging Face inference API.
package huggingface
