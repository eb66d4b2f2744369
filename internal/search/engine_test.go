package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/memory-journal/internal/model"
	"github.com/sakif/memory-journal/internal/oracle"
	"github.com/sakif/memory-journal/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================

type fakeLister []model.Memory

func (f fakeLister) ListMemories(_ context.Context, filter repository.MemoryFilter) ([]model.Memory, error) {
	out := []model.Memory{}
	for _, m := range f {
		if m.UserID == filter.UserID {
			out = append(out, m)
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// topicEmbedder places text on three axes (mountains, food, work) by keyword
// counts, so hiking content lands close to mountain queries.
type topicEmbedder struct {
	mu    sync.Mutex
	calls map[string]int
	fail  func(text string) bool
}

var topics = [][]string{
	{"alps", "hiking", "mountain", "mountains", "trip", "ski"},
	{"pizza", "dinner", "lunch", "food"},
	{"office", "meeting", "deadline", "work"},
}

func (e *topicEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	if e.calls == nil {
		e.calls = make(map[string]int)
	}
	e.calls[text]++
	e.mu.Unlock()

	if e.fail != nil && e.fail(text) {
		return nil, errors.New("embedding provider down")
	}

	vec := make([]float32, len(topics)+1)
	vec[len(topics)] = 0.05 // never a zero vector
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ",.!?")
		for axis, keywords := range topics {
			for _, k := range keywords {
				if word == k {
					vec[axis]++
				}
			}
		}
	}
	return vec, nil
}

type fakeCompleter struct {
	reply func(p oracle.Prompt) (string, error)
}

func (c fakeCompleter) Complete(_ context.Context, p oracle.Prompt) (string, error) {
	if c.reply == nil {
		return "", oracle.ErrNotConfigured
	}
	return c.reply(p)
}

type countingObserver struct {
	results  int
	degraded bool
}

func (o *countingObserver) ObserveSearch(results int, degraded bool) {
	o.results, o.degraded = results, degraded
}

func newTestEngine(memories []model.Memory, e oracle.Embedder, c oracle.Completer, obs Observer) *Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(fakeLister(memories), e, c, DefaultConfig(), obs, logger)
}

func mem(id, content string) model.Memory {
	return model.Memory{ID: id, UserID: "u1", Type: model.MemoryTypeText, Content: content, Date: time.Now()}
}

// =========================================================================
// TESTS
// =========================================================================

func TestSearch_FindsTheHikingMemory(t *testing.T) {
	memories := []model.Memory{
		mem("dinner", "Pizza dinner with friends"),
		mem("alps", "Hiking in the Alps with Maria, felt peaceful"),
		mem("work", "Long office meeting about the deadline"),
	}
	obs := &countingObserver{}
	engine := newTestEngine(memories, &topicEmbedder{}, fakeCompleter{}, obs)

	resp, err := engine.Search(context.Background(), "u1", "trip to the mountains")
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "alps", resp.Results[0].Memory.ID)
	assert.Greater(t, resp.Results[0].Similarity, 0.3)
	assert.Equal(t, FallbackExplanation, resp.Results[0].Explanation)
	assert.Equal(t, "Found 1 relevant memories", resp.Message)
	assert.Equal(t, "trip to the mountains", resp.OriginalQuery)

	require.NotNil(t, resp.QueryExpansion)
	assert.Equal(t, FallbackStrategy, resp.QueryExpansion.SearchStrategy)
	assert.Equal(t, 1, obs.results)
	assert.False(t, obs.degraded)
}

func TestSearch_NoCandidates(t *testing.T) {
	engine := newTestEngine(nil, &topicEmbedder{}, fakeCompleter{}, nil)

	resp, err := engine.Search(context.Background(), "u1", "anything")
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
	assert.Nil(t, resp.QueryExpansion)
	assert.Equal(t, MessageNoMemories, resp.Message)
}

func TestSearch_EmptyQueryIsRejected(t *testing.T) {
	engine := newTestEngine(nil, &topicEmbedder{}, fakeCompleter{}, nil)
	_, err := engine.Search(context.Background(), "u1", "   ")
	require.Error(t, err)
}

func TestSearch_QueryEmbeddingFailureDegrades(t *testing.T) {
	embedder := &topicEmbedder{fail: func(text string) bool { return text == "mountains" }}
	expansionCalled := false
	completer := fakeCompleter{reply: func(p oracle.Prompt) (string, error) {
		expansionCalled = true
		return `{"expandedQuery":"mountains hills","searchTerms":["hills"],"searchStrategy":"synonyms"}`, nil
	}}
	obs := &countingObserver{}
	engine := newTestEngine([]model.Memory{mem("alps", "Alps")}, embedder, completer, obs)

	resp, err := engine.Search(context.Background(), "u1", "mountains")
	require.NoError(t, err)
	assert.True(t, expansionCalled)
	assert.Empty(t, resp.Results)
	assert.Equal(t, MessageUnavailable, resp.Message)
	require.NotNil(t, resp.QueryExpansion)
	assert.Equal(t, Expansion{ExpandedQuery: "mountains", SearchTerms: []string{"mountains"}, SearchStrategy: FallbackStrategy}, *resp.QueryExpansion)
	assert.True(t, obs.degraded)
}

func TestSearch_CandidateFailureDropsOnlyThatCandidate(t *testing.T) {
	embedder := &topicEmbedder{fail: func(text string) bool { return strings.Contains(text, "broken") }}
	memories := []model.Memory{
		mem("ok", "Ski trip"),
		mem("bad", "broken hiking trip"),
	}
	engine := newTestEngine(memories, embedder, fakeCompleter{}, nil)

	resp, err := engine.Search(context.Background(), "u1", "mountain trip")
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "ok", resp.Results[0].Memory.ID)
}

func TestSearch_IdenticalDocumentsEmbeddedOnce(t *testing.T) {
	embedder := &topicEmbedder{}
	memories := []model.Memory{mem("a", "Alps hiking"), mem("b", "Alps hiking"), mem("c", "Alps hiking")}
	engine := newTestEngine(memories, embedder, fakeCompleter{}, nil)

	resp, err := engine.Search(context.Background(), "u1", "mountains")
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
	assert.Equal(t, 1, embedder.calls["Alps hiking"])
	assert.Equal(t, []string{"a", "b", "c"}, []string{resp.Results[0].Memory.ID, resp.Results[1].Memory.ID, resp.Results[2].Memory.ID},
		"ties keep candidate order")
}

func TestSearch_ThresholdTopKAndOrdering(t *testing.T) {
	// Mixing mountain and food words in different proportions spreads the
	// similarities out; several fall below the threshold.
	var memories []model.Memory
	for i := range 20 {
		content := strings.Repeat("hiking ", 1+i%5) + strings.Repeat("pizza ", i%7)
		memories = append(memories, mem(fmt.Sprintf("m%02d", i), content))
	}
	engine := newTestEngine(memories, &topicEmbedder{}, fakeCompleter{}, nil)

	resp, err := engine.Search(context.Background(), "u1", "mountains")
	require.NoError(t, err)

	assert.LessOrEqual(t, len(resp.Results), 10)
	for i, r := range resp.Results {
		assert.Greater(t, r.Similarity, 0.3)
		if i > 0 {
			assert.LessOrEqual(t, r.Similarity, resp.Results[i-1].Similarity)
		}
	}
}

func TestNewEngine_ZeroConfigUsesDefaultThreshold(t *testing.T) {
	memories := []model.Memory{
		mem("m1", "hiking the alps"),
		mem("m2", "hiking pizza pizza pizza pizza"), // about 0.24
		mem("m3", "pizza dinner"),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(fakeLister(memories), &topicEmbedder{}, fakeCompleter{}, Config{}, nil, logger)

	resp, err := engine.Search(context.Background(), "u1", "mountains")
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "m1", resp.Results[0].Memory.ID)
}

func TestSearch_ExpansionAndExplanations(t *testing.T) {
	completer := fakeCompleter{reply: func(p oracle.Prompt) (string, error) {
		if p.JSON {
			return `{"expandedQuery":"mountain hiking alps","searchTerms":["alps","hiking"]}`, nil
		}
		assert.Contains(t, p.User, `Search query: "mountains"`)
		assert.Contains(t, p.User, "Location: Chamonix")
		assert.Contains(t, p.User, "People: Maria")
		assert.Contains(t, p.User, "Emotion: Not specified")
		assert.Equal(t, 100, p.MaxTokens)
		return "  You hiked in the mountains.  ", nil
	}}
	m := mem("alps", "Alps hiking")
	m.Location = "Chamonix"
	m.People = []string{"Maria"}
	engine := newTestEngine([]model.Memory{m}, &topicEmbedder{}, completer, nil)

	resp, err := engine.Search(context.Background(), "u1", "mountains")
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "You hiked in the mountains.", resp.Results[0].Explanation)

	exp := resp.QueryExpansion
	assert.Equal(t, "mountain hiking alps", exp.ExpandedQuery)
	assert.Equal(t, []string{"alps", "hiking"}, exp.SearchTerms)
	assert.Equal(t, FallbackStrategy, exp.SearchStrategy, "missing fields come from the fallback")
}

func TestSearch_UnparsableExpansionFallsBack(t *testing.T) {
	completer := fakeCompleter{reply: func(p oracle.Prompt) (string, error) {
		if p.JSON {
			return "not json", nil
		}
		return "", errors.New("down")
	}}
	engine := newTestEngine([]model.Memory{mem("alps", "Alps")}, &topicEmbedder{}, completer, nil)

	resp, err := engine.Search(context.Background(), "u1", "alps")
	require.NoError(t, err)
	assert.Equal(t, fallbackExpansion("alps"), *resp.QueryExpansion)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, FallbackExplanation, resp.Results[0].Explanation)
}

func TestSearch_OnlySearchesOwnMemories(t *testing.T) {
	other := mem("theirs", "Alps hiking")
	other.UserID = "u2"
	engine := newTestEngine([]model.Memory{other}, &topicEmbedder{}, fakeCompleter{}, nil)

	resp, err := engine.Search(context.Background(), "u1", "alps")
	require.NoError(t, err)
	assert.Equal(t, MessageNoMemories, resp.Message)
}

func TestDocument(t *testing.T) {
	m := model.Memory{
		Content:    "Picnic",
		Transcript: "",
		Location:   "Park",
		People:     []string{"Ana", "Bo"},
		Emotion:    model.EmotionHappy,
		Prompt:     "What made you smile?",
	}
	assert.Equal(t, "Picnic Park Ana Bo happy What made you smile?", Document(m))
}
