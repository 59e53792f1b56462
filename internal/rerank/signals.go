package rerank

import (
	"fmt"
	"strings"

	"medassist-ai/internal/medquery"
	"medassist-ai/internal/search"
)

// Signal weights. Semantic similarity carries the most weight because the
// base retrieval score is the most reliable input; answer relevance comes
// from a model call and is deliberately weighted below it.
const (
	weightAnswerRelevance = 2.0
	weightSemantic        = 2.5
	weightEntityMatch     = 1.5
	weightVocabMatch      = 1.0
	weightEvidenceQuality = 0.8
	weightRecency         = 0.5
	weightSpecificity     = 0.5
)

const signalNameAnswerRelevance = "answer_relevance"

// signalContext carries everything a heuristic signal may inspect.
type signalContext struct {
	understanding medquery.Understanding
	passage       search.Passage
	currentYear   int
}

// heuristicSignal is one locally-computable relevance signal.
type heuristicSignal struct {
	name   string
	weight float64
	score  func(sc signalContext) (float64, string)
}

// heuristicSignals lists every signal that needs no external call, so
// weights live in one tunable place.
var heuristicSignals = []heuristicSignal{
	{name: "semantic_relevance", weight: weightSemantic, score: semanticRelevance},
	{name: "entity_match", weight: weightEntityMatch, score: entityMatch},
	{name: "vocab_match", weight: weightVocabMatch, score: vocabMatch},
	{name: "evidence_quality", weight: weightEvidenceQuality, score: evidenceQuality},
	{name: "recency", weight: weightRecency, score: recency},
	{name: "specificity_alignment", weight: weightSpecificity, score: specificityAlignment},
}

func semanticRelevance(sc signalContext) (float64, string) {
	return clamp01(sc.passage.Score), fmt.Sprintf("base retrieval score %.2f", sc.passage.Score)
}

func entityMatch(sc signalContext) (float64, string) {
	entities := sc.understanding.AllEntities()
	if len(entities) == 0 {
		return 0.5, "no entities extracted"
	}
	matched := matchedEntities(entities, sc.passage)
	return float64(len(matched)) / float64(len(entities)),
		fmt.Sprintf("matched %d of %d entities", len(matched), len(entities))
}

func vocabMatch(sc signalContext) (float64, string) {
	terms := sc.understanding.VocabTerms
	if len(terms) == 0 {
		return 0.5, "no vocabulary terms extracted"
	}
	matched := matchedTerms(terms, sc.passage)
	return float64(len(matched)) / float64(len(terms)),
		fmt.Sprintf("matched %d of %d vocabulary terms", len(matched), len(terms))
}

func evidenceQuality(sc signalContext) (float64, string) {
	level := sc.passage.EvidenceLevel
	if level < 1 || level > 5 {
		return 0.5, "evidence level unknown"
	}
	return float64(6-level) / 5, fmt.Sprintf("evidence level %d", level)
}

func recency(sc signalContext) (float64, string) {
	if sc.passage.Year == 0 {
		return 0.5, "publication year unknown"
	}
	age := sc.currentYear - sc.passage.Year
	score := 1 - float64(age)/10
	if score < 0 {
		score = 0
	}
	return score, fmt.Sprintf("published %d", sc.passage.Year)
}

func specificityAlignment(sc signalContext) (float64, string) {
	passageBucket := contentSpecificity(sc.passage.Content)
	questionBucket := sc.understanding.Specificity

	score := 0.4
	switch {
	case passageBucket == questionBucket:
		score = 1.0
	case adjacentSpecificity(passageBucket, questionBucket):
		score = 0.7
	}
	return score, fmt.Sprintf("passage %s vs question %s", passageBucket, questionBucket)
}

// contentSpecificity buckets a passage by length: short passages tend to be
// focused statements, long ones broad reviews.
func contentSpecificity(content string) string {
	switch {
	case len(content) < 500:
		return "high"
	case len(content) < 2000:
		return "medium"
	default:
		return "low"
	}
}

func adjacentSpecificity(a, b string) bool {
	rank := map[string]int{"low": 0, "medium": 1, "high": 2}
	ra, okA := rank[a]
	rb, okB := rank[b]
	if !okA || !okB {
		return false
	}
	diff := ra - rb
	return diff == 1 || diff == -1
}

// matchedEntities returns the entities found in the passage title or content,
// case-insensitive substring match.
func matchedEntities(entities []string, p search.Passage) []string {
	haystack := strings.ToLower(p.Title + " " + p.Content)
	var matched []string
	for _, e := range entities {
		if strings.Contains(haystack, strings.ToLower(e)) {
			matched = append(matched, e)
		}
	}
	return matched
}

// matchedTerms returns the question's vocabulary terms present in the
// passage's own term set.
func matchedTerms(terms []string, p search.Passage) []string {
	tagged := make(map[string]bool, len(p.MeshTerms))
	for _, t := range p.MeshTerms {
		tagged[strings.ToLower(t)] = true
	}
	var matched []string
	for _, t := range terms {
		if tagged[strings.ToLower(t)] {
			matched = append(matched, t)
		}
	}
	return matched
}
