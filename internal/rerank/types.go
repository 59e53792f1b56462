package rerank

import "medassist-ai/internal/search"

// Signal is one named relevance score with the weight it carries in the
// ensemble and a short explanation of how it was computed.
type Signal struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Weight      float64 `json:"weight"`
	Explanation string  `json:"explanation"`
}

// RankedPassage is a retrieval candidate after contextual scoring.
type RankedPassage struct {
	search.Passage

	// Signals holds the individual relevance signals that fed the ensemble.
	Signals []Signal `json:"signals"`
	// ContextualScore is the weighted mean of the signal scores, in [0,1].
	ContextualScore float64 `json:"contextual_score"`
	// Confidence buckets the contextual score: "high" (>0.8),
	// "medium" (>0.6), else "low".
	Confidence string `json:"confidence"`
	// MatchedEntities are the extracted question entities found in the passage.
	MatchedEntities []string `json:"matched_entities,omitempty"`
	// MatchedTerms are the question's vocabulary terms found on the passage.
	MatchedTerms []string `json:"matched_terms,omitempty"`
}

func confidenceBucket(score float64) string {
	switch {
	case score > 0.8:
		return "high"
	case score > 0.6:
		return "medium"
	default:
		return "low"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
