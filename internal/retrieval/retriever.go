package retrieval

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"medassist-ai/internal/contextutil"
	"medassist-ai/internal/medquery"
	"medassist-ai/internal/resilient"
	"medassist-ai/internal/search"
)

// strategy is one retrieval angle over the shared search index.
type strategy struct {
	name  string
	query search.Query
}

// Retriever fans a single understood question out into multiple search
// strategies and merges the results into one candidate pool.
type Retriever struct {
	searcher         search.Searcher
	multiplier       int
	maxEvidenceLevel int
}

// New creates a retriever. multiplier controls how much the candidate pool
// over-fetches relative to the final target count, so the reranker has
// room to filter.
func New(searcher search.Searcher, multiplier, maxEvidenceLevel int) *Retriever {
	if multiplier < 1 {
		multiplier = 1
	}
	return &Retriever{
		searcher:         searcher,
		multiplier:       multiplier,
		maxEvidenceLevel: maxEvidenceLevel,
	}
}

// Retrieve runs the semantic, keyword, and entity strategies concurrently and
// returns the merged candidate pool, best first, capped at multiplier*target.
// A failing strategy contributes nothing; Retrieve only errors when every
// strategy fails.
func (r *Retriever) Retrieve(ctx context.Context, u medquery.Understanding, target int) ([]search.Passage, error) {
	logger := contextutil.LoggerFromContext(ctx)

	poolSize := r.multiplier * target
	strategies := r.buildStrategies(u, poolSize)

	results := make([][]search.Passage, len(strategies))
	succeeded := make([]bool, len(strategies))

	var wg sync.WaitGroup
	for i, s := range strategies {
		wg.Add(1)
		go func(i int, s strategy) {
			defer wg.Done()
			results[i], succeeded[i] = resilient.Call(ctx, s.name+" retrieval", []search.Passage(nil),
				func(ctx context.Context) ([]search.Passage, error) {
					return r.searcher.Search(ctx, s.query)
				})
		}(i, s)
	}
	wg.Wait()

	failures := 0
	for _, ok := range succeeded {
		if !ok {
			failures++
		}
	}
	if failures == len(strategies) {
		return nil, fmt.Errorf("all %d retrieval strategies failed", len(strategies))
	}

	merged := mergeCandidates(results, poolSize)

	logger.DebugContext(ctx, "retrieval complete",
		"strategies", len(strategies),
		"failed", failures,
		"candidates", len(merged),
	)
	return merged, nil
}

// buildStrategies derives the per-strategy queries from the understanding.
// The semantic strategy favors vector similarity, the keyword strategy favors
// lexical overlap, and the entity strategy targets extracted entities filtered
// by controlled-vocabulary terms.
func (r *Retriever) buildStrategies(u medquery.Understanding, poolSize int) []strategy {
	strategies := []strategy{
		{
			name: "semantic",
			query: search.Query{
				Text:             u.SemanticQuery,
				MaxResults:       poolSize,
				MaxEvidenceLevel: r.maxEvidenceLevel,
				SemanticWeight:   1.5,
				KeywordWeight:    0.5,
			},
		},
		{
			name: "keyword",
			query: search.Query{
				Text:             u.KeywordQuery,
				MaxResults:       poolSize,
				MaxEvidenceLevel: r.maxEvidenceLevel,
				SemanticWeight:   0.5,
				KeywordWeight:    1.5,
			},
		},
	}

	// The entity strategy only makes sense when the analyzer actually
	// extracted something to pivot on.
	if u.EntityQuery != "" && (len(u.AllEntities()) > 0 || len(u.VocabTerms) > 0) {
		strategies = append(strategies, strategy{
			name: "entity",
			query: search.Query{
				Text:             u.EntityQuery,
				MaxResults:       poolSize,
				MaxEvidenceLevel: r.maxEvidenceLevel,
				SemanticWeight:   1.0,
				KeywordWeight:    1.0,
				MeshTerms:        u.VocabTerms,
			},
		})
	}
	return strategies
}

// mergeCandidates unions strategy results by passage ID, keeping the highest
// base score seen for each passage, then sorts best first and caps the pool.
func mergeCandidates(results [][]search.Passage, limit int) []search.Passage {
	byID := make(map[string]search.Passage)
	for _, passages := range results {
		for _, p := range passages {
			if existing, ok := byID[p.ID]; !ok || p.Score > existing.Score {
				byID[p.ID] = p
			}
		}
	}

	merged := make([]search.Passage, 0, len(byID))
	for _, p := range byID {
		merged = append(merged, p)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
