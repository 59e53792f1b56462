package retrieval

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/mock/gomock"

	"medassist-ai/internal/medquery"
	"medassist-ai/internal/search"
	"medassist-ai/internal/search/mocks"
)

// fakeSearcher returns canned results keyed on query text, or a global error.
type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]search.Passage
	err     error
	queries []search.Query
}

func (f *fakeSearcher) Search(ctx context.Context, query search.Query) ([]search.Passage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query.Text], nil
}

func understandingFixture() medquery.Understanding {
	return medquery.Understanding{
		PrimaryIntent: "treatment",
		SemanticQuery: "semantic",
		KeywordQuery:  "keyword",
		EntityQuery:   "entity",
		Entities:      medquery.EntityBag{Conditions: []string{"hypertension"}},
		VocabTerms:    []string{"Hypertension"},
	}
}

func TestRetrieveMergesStrategies(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]search.Passage{
		"semantic": {
			{ID: "a", Score: 0.9},
			{ID: "b", Score: 0.5},
		},
		"keyword": {
			{ID: "b", Score: 0.8}, // higher duplicate wins
			{ID: "c", Score: 0.4},
		},
		"entity": {
			{ID: "a", Score: 0.3}, // lower duplicate loses
			{ID: "d", Score: 0.7},
		},
	}}

	retriever := New(searcher, 3, 5)
	merged, err := retriever.Retrieve(context.Background(), understandingFixture(), 5)
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}

	wantOrder := []string{"a", "b", "d", "c"}
	if len(merged) != len(wantOrder) {
		t.Fatalf("got %d candidates, want %d", len(merged), len(wantOrder))
	}
	for i, id := range wantOrder {
		if merged[i].ID != id {
			t.Errorf("position %d: got %q, want %q", i, merged[i].ID, id)
		}
	}
	if merged[1].Score != 0.8 {
		t.Errorf("duplicate b kept score %v, want max 0.8", merged[1].Score)
	}
	if len(searcher.queries) != 3 {
		t.Errorf("ran %d strategies, want 3", len(searcher.queries))
	}
}

func TestRetrieveSkipsEntityStrategyWithoutEntities(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]search.Passage{}}

	u := understandingFixture()
	u.EntityQuery = ""
	u.Entities = medquery.EntityBag{}
	u.VocabTerms = nil

	retriever := New(searcher, 3, 5)
	if _, err := retriever.Retrieve(context.Background(), u, 5); err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if len(searcher.queries) != 2 {
		t.Errorf("ran %d strategies, want 2 without entities", len(searcher.queries))
	}
}

// partialSearcher fails the keyword strategy only.
type partialSearcher struct {
	fakeSearcher
}

func (p *partialSearcher) Search(ctx context.Context, query search.Query) ([]search.Passage, error) {
	if query.Text == "keyword" {
		return nil, fmt.Errorf("index unavailable")
	}
	return p.fakeSearcher.Search(ctx, query)
}

func TestRetrieveToleratesOneFailedStrategy(t *testing.T) {
	searcher := &partialSearcher{fakeSearcher{results: map[string][]search.Passage{
		"semantic": {{ID: "a", Score: 0.9}},
		"entity":   {{ID: "b", Score: 0.6}},
	}}}

	retriever := New(searcher, 3, 5)
	merged, err := retriever.Retrieve(context.Background(), understandingFixture(), 5)
	if err != nil {
		t.Fatalf("Retrieve returned error despite surviving strategies: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("got %d candidates, want 2 from surviving strategies", len(merged))
	}
}

func TestRetrieveErrorsWhenAllStrategiesFail(t *testing.T) {
	searcher := &fakeSearcher{err: fmt.Errorf("search down")}

	retriever := New(searcher, 3, 5)
	if _, err := retriever.Retrieve(context.Background(), understandingFixture(), 5); err == nil {
		t.Fatal("expected error when every strategy fails")
	}
}

func TestRetrieveStrategyWeights(t *testing.T) {
	ctrl := gomock.NewController(t)
	searcher := mocks.NewMockSearcher(ctrl)

	searcher.EXPECT().
		Search(gomock.Any(), search.Query{
			Text: "semantic", MaxResults: 15, MaxEvidenceLevel: 5,
			SemanticWeight: 1.5, KeywordWeight: 0.5,
		}).
		Return(nil, nil)
	searcher.EXPECT().
		Search(gomock.Any(), search.Query{
			Text: "keyword", MaxResults: 15, MaxEvidenceLevel: 5,
			SemanticWeight: 0.5, KeywordWeight: 1.5,
		}).
		Return(nil, nil)
	searcher.EXPECT().
		Search(gomock.Any(), search.Query{
			Text: "entity", MaxResults: 15, MaxEvidenceLevel: 5,
			SemanticWeight: 1.0, KeywordWeight: 1.0,
			MeshTerms: []string{"Hypertension"},
		}).
		Return(nil, nil)

	retriever := New(searcher, 3, 5)
	if _, err := retriever.Retrieve(context.Background(), understandingFixture(), 5); err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
}

func TestRetrieveCapsPool(t *testing.T) {
	many := make([]search.Passage, 20)
	for i := range many {
		many[i] = search.Passage{ID: fmt.Sprintf("p%02d", i), Score: float64(20-i) / 20}
	}
	searcher := &fakeSearcher{results: map[string][]search.Passage{"semantic": many}}

	retriever := New(searcher, 2, 5)
	merged, err := retriever.Retrieve(context.Background(), understandingFixture(), 3)
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if len(merged) != 6 {
		t.Errorf("got %d candidates, want pool capped at multiplier*target = 6", len(merged))
	}
	// Over-fetch size is also passed down to each strategy.
	for _, q := range searcher.queries {
		if q.MaxResults != 6 {
			t.Errorf("strategy MaxResults = %d, want 6", q.MaxResults)
		}
	}
}
