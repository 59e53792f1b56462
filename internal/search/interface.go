package search

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_searcher.go -package=mocks medassist-ai/internal/search Searcher

import "context"

// Searcher defines the hybrid search interface consumed by the retrieval stage.
// Implementations must be safe for concurrent use and must return an empty
// slice (not an error) when nothing matches.
type Searcher interface {
	// Search returns passages scored against the query, best first.
	Search(ctx context.Context, query Query) ([]Passage, error)
}
