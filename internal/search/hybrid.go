package search

import (
	"context"
	"errors"
	"sort"
	"strings"

	"medassist-ai/internal/contextutil"
	"medassist-ai/internal/storage"
	"medassist-ai/internal/vectorstore"
)

// Embedder generates embedding vectors for query texts.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// HybridSearcher implements Searcher by blending vector similarity from the
// vector store with lexical matching over the passage corpus.
type HybridSearcher struct {
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	passages    storage.PassageStore
}

// NewHybridSearcher creates a new hybrid searcher.
func NewHybridSearcher(embedder Embedder, vectorStore vectorstore.VectorStore, collection string, passages storage.PassageStore) *HybridSearcher {
	return &HybridSearcher{
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		passages:    passages,
	}
}

// Search returns passages scored against the query, best first.
// Either leg failing degrades to the other leg's results; only both legs
// failing with no candidates yields an empty result, never an error.
func (s *HybridSearcher) Search(ctx context.Context, query Query) ([]Passage, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(query.Text) == "" {
		return []Passage{}, nil
	}

	maxResults := query.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	semanticWeight := query.SemanticWeight
	keywordWeight := query.KeywordWeight
	if semanticWeight == 0 && keywordWeight == 0 {
		semanticWeight, keywordWeight = 1.0, 1.0
	}

	semanticScores := s.semanticLeg(ctx, query, maxResults)
	keywordScores, keywordRecords := s.keywordLeg(ctx, query, maxResults)

	// Union of candidate IDs from both legs.
	ids := make(map[string]struct{}, len(semanticScores)+len(keywordScores))
	for id := range semanticScores {
		ids[id] = struct{}{}
	}
	for id := range keywordScores {
		ids[id] = struct{}{}
	}

	weightSum := semanticWeight + keywordWeight
	passages := make([]Passage, 0, len(ids))
	for id := range ids {
		record, ok := keywordRecords[id]
		if !ok {
			fetched, err := s.passages.GetByID(ctx, id)
			if err != nil {
				if !errors.Is(err, storage.ErrNotFound) {
					logger.WarnContext(ctx, "failed to fetch passage for search result", "passage_id", id, "error", err)
				}
				continue // Vector hit with no corpus row; skip
			}
			record = fetched
		}

		score := (semanticWeight*semanticScores[id] + keywordWeight*keywordScores[id]) / weightSum
		passages = append(passages, Passage{
			ID:            record.ID,
			Source:        record.Source,
			Title:         record.Title,
			Content:       record.Content,
			Score:         clamp01(score),
			EvidenceLevel: record.EvidenceLevel,
			MeshTerms:     record.MeshTerms,
			Year:          record.Year,
			StudyType:     record.StudyType,
		})
	}

	sort.SliceStable(passages, func(i, j int) bool {
		if passages[i].Score != passages[j].Score {
			return passages[i].Score > passages[j].Score
		}
		return passages[i].ID < passages[j].ID
	})

	if len(passages) > maxResults {
		passages = passages[:maxResults]
	}

	logger.DebugContext(ctx, "hybrid search completed",
		"query_length", len(query.Text),
		"semantic_candidates", len(semanticScores),
		"keyword_candidates", len(keywordScores),
		"results", len(passages),
	)
	return passages, nil
}

// semanticLeg embeds the query and collects vector similarity scores by passage ID.
// Any failure degrades to an empty contribution.
func (s *HybridSearcher) semanticLeg(ctx context.Context, query Query, maxResults int) map[string]float64 {
	logger := contextutil.LoggerFromContext(ctx)

	embeddings, err := s.embedder.EmbedTexts(ctx, []string{query.Text})
	if err != nil || len(embeddings) == 0 {
		logger.WarnContext(ctx, "semantic search leg unavailable", "error", err)
		return map[string]float64{}
	}

	filter := &vectorstore.SearchFilter{
		MaxEvidenceLevel: query.MaxEvidenceLevel,
		MeshTerms:        query.MeshTerms,
	}

	results, err := s.vectorStore.Search(ctx, s.collection, embeddings[0], maxResults*2, filter)
	if err != nil {
		logger.WarnContext(ctx, "vector search failed, continuing with keyword leg", "error", err)
		return map[string]float64{}
	}

	scores := make(map[string]float64, len(results))
	for _, result := range results {
		if result.PointID == "" {
			continue
		}
		scores[result.PointID] = clamp01(float64(result.Score))
	}
	return scores
}

// keywordLeg collects lexical match scores and the matching records by passage ID.
// Any failure degrades to an empty contribution.
func (s *HybridSearcher) keywordLeg(ctx context.Context, query Query, maxResults int) (map[string]float64, map[string]*storage.PassageRecord) {
	logger := contextutil.LoggerFromContext(ctx)

	tokens := filterStopwords(tokenize(query.Text))
	if len(tokens) == 0 {
		return map[string]float64{}, map[string]*storage.PassageRecord{}
	}

	candidates, err := s.passages.SearchKeyword(ctx, tokens, query.MaxEvidenceLevel, maxResults*4)
	if err != nil {
		logger.WarnContext(ctx, "keyword search failed, continuing with semantic leg", "error", err)
		return map[string]float64{}, map[string]*storage.PassageRecord{}
	}

	scores := make(map[string]float64, len(candidates))
	records := make(map[string]*storage.PassageRecord, len(candidates))
	for _, candidate := range candidates {
		if len(query.MeshTerms) > 0 && !hasAnyMeshTerm(candidate.MeshTerms, query.MeshTerms) {
			continue
		}
		scores[candidate.ID] = lexicalScore(query.Text, candidate.Content, candidate.Title)
		records[candidate.ID] = candidate
	}
	return scores, records
}

// hasAnyMeshTerm reports whether the passage carries at least one of the
// requested controlled-vocabulary terms (case-insensitive).
func hasAnyMeshTerm(passageTerms, wanted []string) bool {
	if len(passageTerms) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(passageTerms))
	for _, term := range passageTerms {
		set[strings.ToLower(strings.TrimSpace(term))] = struct{}{}
	}
	for _, term := range wanted {
		if _, ok := set[strings.ToLower(strings.TrimSpace(term))]; ok {
			return true
		}
	}
	return false
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

var _ Searcher = (*HybridSearcher)(nil)
