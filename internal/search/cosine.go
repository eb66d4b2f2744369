package search

import (
	"fmt"
	"math"

	"github.com/sakif/memory-journal/internal/apperror"
)

// Cosine returns the cosine similarity of a and b, in [-1, 1].
// A zero vector has similarity 0 with everything. Vectors of different
// length are a validation error.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, apperror.ValidationFailed("vector", fmt.Sprintf("length mismatch: %d vs %d", len(a), len(b)))
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}

	// A single sqrt keeps Cosine(a, a) exactly 1: sqrt(x*x) == x.
	sim := dot / math.Sqrt(na*nb)
	return math.Max(-1, math.Min(1, sim)), nil
}
