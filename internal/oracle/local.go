package oracle

import (
	"context"
	"hash/fnv"
	"io"
	"math"
	"strings"
	"unicode"
)

// LocalDimension is the vector length produced by Local.
const LocalDimension = 384

// Local works without network access. Its embedder hashes each word into one
// of LocalDimension buckets and L2-normalises the counts, so texts sharing
// words score high cosine similarity. Completion and transcription are not
// available and fail with ErrNotConfigured, which sends every caller down its
// fallback path.
type Local struct{}

func (Local) Embed(_ context.Context, text string) ([]float32, error) {
	vector := make([]float32, LocalDimension)
	for _, tok := range tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		vector[h.Sum64()%LocalDimension]++
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vector, nil
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vector {
		vector[i] *= inv
	}
	return vector, nil
}

func (Local) Complete(context.Context, Prompt) (string, error) {
	return "", ErrNotConfigured
}

func (Local) Transcribe(context.Context, io.Reader, string) (string, error) {
	return "", ErrNotConfigured
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
