package rerank

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"medassist-ai/internal/contextutil"
	"medassist-ai/internal/medquery"
	"medassist-ai/internal/resilient"
	"medassist-ai/internal/search"
)

// Thresholds holds the adaptive selection ladder's tuning knobs.
type Thresholds struct {
	// MinScore is the contextual score a candidate normally needs to be kept.
	MinScore float64
	// RelaxDelta is subtracted from MinScore when too few candidates pass.
	RelaxDelta float64
	// FloorScore is the lowest the relaxed threshold may go.
	FloorScore float64
	// LastResortScore is the absolute minimum for the final fallback rung.
	LastResortScore float64
}

// Reranker scores retrieval candidates against the understood question and
// selects the final evidence set through an adaptive threshold ladder.
type Reranker struct {
	scorer     Scorer
	thresholds Thresholds
	now        func() time.Time
}

// New creates a reranker. scorer may be nil, in which case every candidate
// takes the degraded scoring path.
func New(scorer Scorer, thresholds Thresholds) *Reranker {
	return &Reranker{
		scorer:     scorer,
		thresholds: thresholds,
		now:        time.Now,
	}
}

// Rerank scores every candidate on seven signals, sorts by the weighted
// ensemble score, and applies the selection ladder. count is the requested
// final result size. Candidates must arrive best-first; ties keep that order.
//
// Rerank never returns an empty list for a non-empty candidate list unless
// every candidate genuinely scores below the last-resort threshold.
func (r *Reranker) Rerank(ctx context.Context, question string, u medquery.Understanding, candidates []search.Passage, count int) []RankedPassage {
	logger := contextutil.LoggerFromContext(ctx)

	if len(candidates) == 0 {
		return nil
	}
	if count < 1 {
		count = 1
	}

	relevance, failures := r.scoreRelevanceBatch(ctx, question, candidates)
	if failures == len(candidates) {
		logger.WarnContext(ctx, "relevance scoring unavailable for entire batch, degrading to retrieval order",
			"candidates", len(candidates),
		)
		return r.degraded(candidates, u, count)
	}

	year := r.now().Year()
	ranked := make([]RankedPassage, 0, len(candidates))
	for i, p := range candidates {
		ranked = append(ranked, r.scoreCandidate(u, p, relevance[i], year))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ContextualScore > ranked[j].ContextualScore
	})

	selected := r.selectLadder(ranked, count)
	logger.DebugContext(ctx, "reranking complete",
		"candidates", len(candidates),
		"scoring_failures", failures,
		"selected", len(selected),
	)
	return selected
}

// relevanceResult is one model scoring outcome; ok is false when the call
// failed and the fallback value was used.
type relevanceResult struct {
	score float64
	ok    bool
}

// relevanceFallback trusts the retrieval score, floored, rather than
// penalizing a passage whose scoring call failed.
func relevanceFallback(base float64) float64 {
	fallback := base * 0.95
	if fallback < 0.6 {
		fallback = 0.6
	}
	return fallback
}

// scoreRelevanceBatch runs the answer-relevance calls concurrently, one
// resilient call per candidate. Returns the per-candidate results and the
// failure count.
func (r *Reranker) scoreRelevanceBatch(ctx context.Context, question string, candidates []search.Passage) ([]relevanceResult, int) {
	results := make([]relevanceResult, len(candidates))

	if r.scorer == nil {
		return results, len(candidates)
	}

	var wg sync.WaitGroup
	for i, p := range candidates {
		wg.Add(1)
		go func(i int, p search.Passage) {
			defer wg.Done()
			score, ok := resilient.Call(ctx, "relevance scoring", relevanceFallback(p.Score),
				func(ctx context.Context) (float64, error) {
					return r.scorer.ScoreRelevance(ctx, question, p)
				})
			results[i] = relevanceResult{score: score, ok: ok}
		}(i, p)
	}
	wg.Wait()

	failures := 0
	for _, res := range results {
		if !res.ok {
			failures++
		}
	}
	return results, failures
}

// scoreCandidate computes all seven signals and the weighted ensemble score
// for one candidate.
func (r *Reranker) scoreCandidate(u medquery.Understanding, p search.Passage, rel relevanceResult, year int) RankedPassage {
	sc := signalContext{understanding: u, passage: p, currentYear: year}

	signals := make([]Signal, 0, len(heuristicSignals)+1)

	explanation := "model relevance rating"
	if !rel.ok {
		explanation = "unavailable"
	}
	signals = append(signals, Signal{
		Name:        signalNameAnswerRelevance,
		Score:       rel.score,
		Weight:      weightAnswerRelevance,
		Explanation: explanation,
	})

	for _, hs := range heuristicSignals {
		score, explanation := hs.score(sc)
		signals = append(signals, Signal{
			Name:        hs.name,
			Score:       score,
			Weight:      hs.weight,
			Explanation: explanation,
		})
	}

	score := weightedMean(signals)
	return RankedPassage{
		Passage:         p,
		Signals:         signals,
		ContextualScore: score,
		Confidence:      confidenceBucket(score),
		MatchedEntities: matchedEntities(u.AllEntities(), p),
		MatchedTerms:    matchedTerms(u.VocabTerms, p),
	}
}

func weightedMean(signals []Signal) float64 {
	var sum, weights float64
	for _, s := range signals {
		sum += s.Score * s.Weight
		weights += s.Weight
	}
	if weights == 0 {
		return 0
	}
	return clamp01(sum / weights)
}

// selectLadder applies the selection rules in order:
//  1. keep everything at or above the configured minimum;
//  2. if that leaves fewer than count, relax the threshold by RelaxDelta
//     (never below FloorScore) and retake up to 2*count;
//  3. if still fewer than 3, take the top candidates at or above the
//     last-resort score, capped at count.
//
// The constants are tuned empirically and deliberately live in configuration.
func (r *Reranker) selectLadder(ranked []RankedPassage, count int) []RankedPassage {
	selected := aboveThreshold(ranked, r.thresholds.MinScore)

	if len(selected) < count {
		relaxed := r.thresholds.MinScore - r.thresholds.RelaxDelta
		if relaxed < r.thresholds.FloorScore {
			relaxed = r.thresholds.FloorScore
		}
		selected = aboveThreshold(ranked, relaxed)
		if len(selected) > 2*count {
			selected = selected[:2*count]
		}
	}

	if len(selected) < 3 {
		selected = aboveThreshold(ranked, r.thresholds.LastResortScore)
		if len(selected) > count {
			selected = selected[:count]
		}
	}
	return selected
}

// aboveThreshold returns the leading run of candidates at or above min.
// ranked is sorted descending, so the run is a prefix.
func aboveThreshold(ranked []RankedPassage, min float64) []RankedPassage {
	for i, rp := range ranked {
		if rp.ContextualScore < min {
			return ranked[:i]
		}
	}
	return ranked
}

// degraded passes candidates through in retrieval order with synthetic
// signal values when no relevance scoring is possible at all. Evidence
// should only disappear when it is irrelevant, not when a scoring
// dependency is down.
func (r *Reranker) degraded(candidates []search.Passage, u medquery.Understanding, count int) []RankedPassage {
	year := r.now().Year()

	ranked := make([]RankedPassage, 0, len(candidates))
	for _, p := range candidates {
		sc := signalContext{understanding: u, passage: p, currentYear: year}
		signals := []Signal{
			{Name: signalNameAnswerRelevance, Score: clamp01(p.Score), Weight: weightAnswerRelevance, Explanation: "unavailable"},
			{Name: "semantic_relevance", Score: clamp01(p.Score), Weight: weightSemantic, Explanation: fmt.Sprintf("base retrieval score %.2f", p.Score)},
			{Name: "entity_match", Score: 0.7, Weight: weightEntityMatch, Explanation: "unavailable"},
			{Name: "vocab_match", Score: 0.7, Weight: weightVocabMatch, Explanation: "unavailable"},
		}
		for _, hs := range heuristicSignals {
			switch hs.name {
			case "semantic_relevance", "entity_match", "vocab_match":
				continue // synthetic values above
			}
			score, explanation := hs.score(sc)
			signals = append(signals, Signal{Name: hs.name, Score: score, Weight: hs.weight, Explanation: explanation})
		}

		ranked = append(ranked, RankedPassage{
			Passage:         p,
			Signals:         signals,
			ContextualScore: weightedMean(signals),
			Confidence:      "medium",
			MatchedEntities: matchedEntities(u.AllEntities(), p),
			MatchedTerms:    matchedTerms(u.VocabTerms, p),
		})
	}

	if len(ranked) > count {
		ranked = ranked[:count]
	}
	return ranked
}
