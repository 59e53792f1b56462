package search

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"medassist-ai/internal/storage"
	"medassist-ai/internal/vectorstore"
)

// fakeEmbedder returns a fixed vector, or an error when failing is set.
type fakeEmbedder struct {
	failing bool
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if f.failing {
		return nil, fmt.Errorf("embedding service unavailable")
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0.1, 0.2, 0.3}
	}
	return vectors, nil
}

// fakeVectorStore returns canned similarity results.
type fakeVectorStore struct {
	results []vectorstore.SearchResult
	err     error
}

func (f *fakeVectorStore) Upsert(ctx context.Context, collection string, points []vectorstore.Point) error {
	return nil
}

func (f *fakeVectorStore) Search(ctx context.Context, collection string, query []float32, k int, filter *vectorstore.SearchFilter) ([]vectorstore.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeVectorStore) Delete(ctx context.Context, collection string, ids []string) error {
	return nil
}

func (f *fakeVectorStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	return true, nil
}

func newTestRepo(t *testing.T) *storage.PassageRepo {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return storage.NewPassageRepo(db)
}

func insertPassage(t *testing.T, repo *storage.PassageRepo, title, content string, level int, meshTerms ...string) string {
	t.Helper()
	id := uuid.NewString()
	err := repo.Insert(context.Background(), &storage.PassageRecord{
		ID:            id,
		Source:        "JAMA",
		Title:         title,
		Content:       content,
		EvidenceLevel: level,
		MeshTerms:     meshTerms,
		Year:          2022,
		StudyType:     "RCT",
	})
	if err != nil {
		t.Fatalf("failed to insert passage: %v", err)
	}
	return id
}

func TestHybridSearcher_BlendsBothLegs(t *testing.T) {
	repo := newTestRepo(t)
	vectorOnlyID := insertPassage(t, repo, "Rhythm control strategies", "Catheter ablation outcomes in persistent disease.", 2)
	bothLegsID := insertPassage(t, repo, "Anticoagulation in atrial fibrillation", "Anticoagulation reduces stroke in atrial fibrillation.", 1, "Atrial Fibrillation")

	store := &fakeVectorStore{results: []vectorstore.SearchResult{
		{PointID: bothLegsID, Score: 0.9},
		{PointID: vectorOnlyID, Score: 0.5},
	}}

	searcher := NewHybridSearcher(&fakeEmbedder{}, store, "evidence", repo)
	results, err := searcher.Search(context.Background(), Query{
		Text:           "anticoagulation atrial fibrillation",
		MaxResults:     10,
		SemanticWeight: 1.5,
		KeywordWeight:  0.5,
	})
	if err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].ID != bothLegsID {
		t.Errorf("Search() top result = %s, want passage matched by both legs", results[0].ID)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("Search() results not sorted: %v then %v", results[0].Score, results[1].Score)
	}
	for _, r := range results {
		if r.Score < 0 || r.Score > 1 {
			t.Errorf("Search() score %v outside [0,1]", r.Score)
		}
		if r.Content == "" || r.Title == "" {
			t.Errorf("Search() result %s missing corpus fields", r.ID)
		}
	}
}

func TestHybridSearcher_VectorLegFailureDegrades(t *testing.T) {
	repo := newTestRepo(t)
	insertPassage(t, repo, "Warfarin dosing", "Warfarin requires INR monitoring for safe dosing.", 2)

	store := &fakeVectorStore{err: fmt.Errorf("qdrant unreachable")}

	searcher := NewHybridSearcher(&fakeEmbedder{}, store, "evidence", repo)
	results, err := searcher.Search(context.Background(), Query{Text: "warfarin dosing", MaxResults: 5})
	if err != nil {
		t.Fatalf("Search() should not fail when the vector leg fails: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1 from keyword leg", len(results))
	}
}

func TestHybridSearcher_EmbedderFailureDegrades(t *testing.T) {
	repo := newTestRepo(t)
	insertPassage(t, repo, "Stroke prevention", "Stroke prevention in high risk patients.", 1)

	searcher := NewHybridSearcher(&fakeEmbedder{failing: true}, &fakeVectorStore{}, "evidence", repo)
	results, err := searcher.Search(context.Background(), Query{Text: "stroke prevention", MaxResults: 5})
	if err != nil {
		t.Fatalf("Search() should not fail when embedding fails: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1 from keyword leg", len(results))
	}
}

func TestHybridSearcher_EmptyQueryAndNoMatches(t *testing.T) {
	repo := newTestRepo(t)
	searcher := NewHybridSearcher(&fakeEmbedder{}, &fakeVectorStore{}, "evidence", repo)

	results, err := searcher.Search(context.Background(), Query{Text: "   "})
	if err != nil {
		t.Fatalf("Search() unexpected error for blank query: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() blank query returned %d results, want 0", len(results))
	}

	results, err = searcher.Search(context.Background(), Query{Text: "nothing matches this", MaxResults: 5})
	if err != nil {
		t.Fatalf("Search() must return empty, not error, on no matches: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() returned %d results, want 0", len(results))
	}
}

func TestHybridSearcher_MeshTermFilterOnKeywordLeg(t *testing.T) {
	repo := newTestRepo(t)
	tagged := insertPassage(t, repo, "AF stroke risk", "Stroke risk scoring in atrial fibrillation.", 1, "Atrial Fibrillation")
	insertPassage(t, repo, "General stroke care", "Stroke unit care improves outcomes.", 1, "Stroke")

	searcher := NewHybridSearcher(&fakeEmbedder{failing: true}, &fakeVectorStore{}, "evidence", repo)
	results, err := searcher.Search(context.Background(), Query{
		Text:       "stroke",
		MaxResults: 5,
		MeshTerms:  []string{"atrial fibrillation"},
	})
	if err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ID != tagged {
		t.Errorf("Search() with MeSH filter = %d results, want only the tagged passage", len(results))
	}
}

func TestHybridSearcher_CapsResults(t *testing.T) {
	repo := newTestRepo(t)
	for i := 0; i < 8; i++ {
		insertPassage(t, repo, fmt.Sprintf("Hypertension study %d", i), "Hypertension treatment lowers blood pressure.", 2)
	}

	searcher := NewHybridSearcher(&fakeEmbedder{failing: true}, &fakeVectorStore{}, "evidence", repo)
	results, err := searcher.Search(context.Background(), Query{Text: "hypertension treatment", MaxResults: 3})
	if err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("Search() returned %d results, want cap of 3", len(results))
	}
}
