package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/memory-journal/internal/insight"
	"github.com/sakif/memory-journal/internal/model"
	"github.com/sakif/memory-journal/internal/repository/memstore"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubSentiment returns a fixed verdict, or err when set.
type stubSentiment struct {
	emotion model.Emotion
	err     error
	calls   int
}

func (s *stubSentiment) AnalyzeSentiment(_ context.Context, _ string) (insight.Sentiment, error) {
	s.calls++
	if s.err != nil {
		return insight.Sentiment{}, s.err
	}
	return insight.Sentiment{Emotion: s.emotion, Confidence: 0.9}, nil
}

type countingObserver struct {
	seen []string
}

func (o *countingObserver) ObserveSentiment(emotion string) { o.seen = append(o.seen, emotion) }

var errOracleDown = errors.New("oracle down")

// seedUser stores a user and returns it.
func seedUser(t *testing.T, store *memstore.Store, id, email string) *model.User {
	t.Helper()
	u := &model.User{ID: id, Email: email, Name: id}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}
