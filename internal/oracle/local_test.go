package oracle

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_EmbedIsNormalisedAndDeterministic(t *testing.T) {
	var l Local
	ctx := context.Background()

	a, err := l.Embed(ctx, "Hiking in the Alps with Maria")
	require.NoError(t, err)
	require.Len(t, a, LocalDimension)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)

	b, _ := l.Embed(ctx, "hiking, in the ALPS with maria!")
	assert.Equal(t, a, b, "case and punctuation are ignored")

	empty, _ := l.Embed(ctx, "   ")
	assert.Len(t, empty, LocalDimension)
}

func TestLocal_CompleteIsNotConfigured(t *testing.T) {
	_, err := Local{}.Complete(context.Background(), Prompt{User: "x"})
	assert.True(t, errors.Is(err, ErrNotConfigured))
}
