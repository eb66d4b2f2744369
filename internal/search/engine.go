// Package search ranks a user's memories against a free-text query.
//
// PIPELINE:
//  1. Load the user's most recent memories as candidates.
//  2. Ask the completer to expand the query (best effort).
//  3. Embed the query, then every candidate document concurrently.
//  4. Score by cosine similarity, keep scores above the threshold, take the top K.
//  5. Ask the completer to explain each hit (best effort).
//
// Search is best effort end to end: provider failures shrink or empty the
// result set but never fail the request. Only storage errors and an empty
// query are returned as errors.
package search

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/model"
	"github.com/sakif/memory-journal/internal/oracle"
	"github.com/sakif/memory-journal/internal/repository"
)

const (
	FallbackStrategy    = "Direct keyword search"
	FallbackExplanation = "This memory contains relevant content."

	MessageNoMemories  = "No memories found for semantic search"
	MessageUnavailable = "Semantic search unavailable, showing 0 AI matches"
)

type Config struct {
	CandidateLimit int     // most recent memories considered
	Concurrency    int     // parallel provider calls per request
	Threshold      float64 // results must score strictly above this
	TopK           int
}

func DefaultConfig() Config {
	return Config{CandidateLimit: 100, Concurrency: 8, Threshold: 0.3, TopK: 10}
}

// Expansion is the completer's rewrite of the query. It is informational:
// ranking always embeds the original query.
type Expansion struct {
	ExpandedQuery  string   `json:"expandedQuery"`
	SearchTerms    []string `json:"searchTerms"`
	SearchStrategy string   `json:"searchStrategy"`
}

type Result struct {
	Memory      model.Memory `json:"memory"`
	Similarity  float64      `json:"similarity"`
	Explanation string       `json:"explanation"`
}

type Response struct {
	Results        []Result   `json:"results"`
	QueryExpansion *Expansion `json:"queryExpansion"`
	OriginalQuery  string     `json:"originalQuery"`
	Message        string     `json:"message"`
}

// MemoryLister is the slice of the store the engine reads from.
type MemoryLister interface {
	ListMemories(ctx context.Context, filter repository.MemoryFilter) ([]model.Memory, error)
}

// Observer is told the size of every response and whether it was degraded.
type Observer interface {
	ObserveSearch(results int, degraded bool)
}

type Engine struct {
	memories  MemoryLister
	embedder  oracle.Embedder
	completer oracle.Completer
	cfg       Config
	observer  Observer
	logger    *slog.Logger
}

// NewEngine builds an engine. Zero Config fields take their defaults;
// observer may be nil.
func NewEngine(memories MemoryLister, embedder oracle.Embedder, completer oracle.Completer, cfg Config, observer Observer, logger *slog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = def.CandidateLimit
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	return &Engine{
		memories:  memories,
		embedder:  embedder,
		completer: completer,
		cfg:       cfg,
		observer:  observer,
		logger:    logger,
	}
}

// Search runs the pipeline for userID's memories.
func (e *Engine) Search(ctx context.Context, userID, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("query", "query is required")
	}

	candidates, err := e.memories.ListMemories(ctx, repository.MemoryFilter{
		UserID:      userID,
		ListOptions: repository.ListOptions{Limit: e.cfg.CandidateLimit},
	})
	if err != nil {
		return nil, fmt.Errorf("loading search candidates: %w", err)
	}
	if len(candidates) == 0 {
		e.observe(0, false)
		return &Response{Results: []Result{}, OriginalQuery: query, Message: MessageNoMemories}, nil
	}

	expansion := e.expand(ctx, query)

	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.Warn("semantic search degraded: query embedding failed", "user_id", userID, "error", err)
		e.observe(0, true)
		fallback := fallbackExpansion(query)
		return &Response{Results: []Result{}, QueryExpansion: &fallback, OriginalQuery: query, Message: MessageUnavailable}, nil
	}

	results := e.rank(ctx, queryVec, candidates)
	e.explain(ctx, query, results)

	e.observe(len(results), false)
	return &Response{
		Results:        results,
		QueryExpansion: &expansion,
		OriginalQuery:  query,
		Message:        fmt.Sprintf("Found %d relevant memories", len(results)),
	}, nil
}

// rank embeds each distinct candidate document once, scores it and returns
// the top K above the threshold, best first. Ties keep candidate order
// (newest first).
func (e *Engine) rank(ctx context.Context, queryVec []float32, candidates []model.Memory) []Result {
	docs := make([]string, len(candidates))
	unique := make(map[string]int)
	var distinct []string
	for i, m := range candidates {
		docs[i] = Document(m)
		if _, seen := unique[docs[i]]; !seen {
			unique[docs[i]] = len(distinct)
			distinct = append(distinct, docs[i])
		}
	}

	// Failures are recorded per slot and never returned, so one bad document
	// cannot cancel its siblings.
	vectors := make([][]float32, len(distinct))
	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i, doc := range distinct {
		g.Go(func() error {
			vec, err := e.embedder.Embed(ctx, doc)
			if err != nil {
				e.logger.Warn("dropping search candidate: embedding failed", "error", err)
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	_ = g.Wait()

	results := make([]Result, 0, len(candidates))
	for i, m := range candidates {
		vec := vectors[unique[docs[i]]]
		if vec == nil {
			continue
		}
		sim, err := Cosine(queryVec, vec)
		if err != nil {
			e.logger.Warn("dropping search candidate", "memory_id", m.ID, "error", err)
			continue
		}
		if sim > e.cfg.Threshold {
			results = append(results, Result{Memory: m, Similarity: sim})
		}
	}

	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})
	if len(results) > e.cfg.TopK {
		results = results[:e.cfg.TopK]
	}
	return results
}

func (e *Engine) expand(ctx context.Context, query string) Expansion {
	fallback := fallbackExpansion(query)

	reply, err := e.completer.Complete(ctx, oracle.Prompt{
		System: "You are a search expert. Analyze the search query and suggest expanded search terms, " +
			"synonyms and related concepts that would help find relevant personal memories. " +
			`Respond with JSON in this format: {"expandedQuery": "string", "searchTerms": ["term"], "searchStrategy": "explanation"}`,
		User: fmt.Sprintf("Expand this search query to find relevant personal memories: %q", query),
		JSON: true,
	})
	if err != nil {
		e.logger.Debug("query expansion unavailable", "error", err)
		return fallback
	}

	var exp Expansion
	if err := json.Unmarshal([]byte(reply), &exp); err != nil {
		e.logger.Debug("query expansion unparsable", "error", err)
		return fallback
	}
	if strings.TrimSpace(exp.ExpandedQuery) == "" {
		exp.ExpandedQuery = fallback.ExpandedQuery
	}
	if len(exp.SearchTerms) == 0 {
		exp.SearchTerms = fallback.SearchTerms
	}
	if strings.TrimSpace(exp.SearchStrategy) == "" {
		exp.SearchStrategy = fallback.SearchStrategy
	}
	return exp
}

func (e *Engine) explain(ctx context.Context, query string, results []Result) {
	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i := range results {
		g.Go(func() error {
			results[i].Explanation = e.explainOne(ctx, query, results[i])
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) explainOne(ctx context.Context, query string, r Result) string {
	reply, err := e.completer.Complete(ctx, oracle.Prompt{
		System: "You are a helpful assistant that explains why a memory matches a search query. " +
			"Give a brief, natural explanation of the connection in 1-2 sentences.",
		User: fmt.Sprintf(
			"Search query: %q\n\nMemory content: %q\nLocation: %s\nPeople: %s\nEmotion: %s\nSimilarity score: %.2f\n\nExplain why this memory matches the search query.",
			query, r.Memory.Content,
			orNotSpecified(r.Memory.Location),
			orNotSpecified(strings.Join(r.Memory.People, ", ")),
			orNotSpecified(string(r.Memory.Emotion)),
			r.Similarity,
		),
		MaxTokens:   100,
		Temperature: 0.7,
	})
	if err != nil || strings.TrimSpace(reply) == "" {
		return FallbackExplanation
	}
	return strings.TrimSpace(reply)
}

func (e *Engine) observe(results int, degraded bool) {
	if e.observer != nil {
		e.observer.ObserveSearch(results, degraded)
	}
}

func fallbackExpansion(query string) Expansion {
	return Expansion{ExpandedQuery: query, SearchTerms: []string{query}, SearchStrategy: FallbackStrategy}
}

// Document is the text embedded for a memory: its non-empty content,
// transcript, location, people, emotion and prompt, space separated.
func Document(m model.Memory) string {
	parts := []string{m.Content, m.Transcript, m.Location, strings.Join(m.People, " "), string(m.Emotion), m.Prompt}
	return strings.Join(slices.DeleteFunc(parts, func(s string) bool { return strings.TrimSpace(s) == "" }), " ")
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}
