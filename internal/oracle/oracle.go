// Package oracle wraps the external AI capabilities the journal relies on:
// text embeddings, chat completions and audio transcription.
//
// Callers depend on the three small interfaces below and never on a concrete
// provider. main picks the providers (OpenAI, Anthropic, or the offline Local
// fallback) and wraps them in a Guard, which adds timeouts, a circuit breaker
// and metrics, and turns every failure into apperror.ErrUpstream.
package oracle

import (
	"context"
	"errors"
	"io"
)

// ErrNotConfigured is returned by capabilities that have no provider behind
// them, e.g. completions when no API key is set.
var ErrNotConfigured = errors.New("oracle: provider not configured")

// Embedder turns text into a dense vector. Vectors from one Embedder all have
// the same length.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer runs a single-turn chat completion and returns the text reply.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Transcriber converts recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Prompt is one completion request.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	// JSON asks the provider for a single JSON object as the reply.
	JSON bool
}
