package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks medassist-ai/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// SearchFilter restricts a similarity search to matching evidence passages.
type SearchFilter struct {
	// MaxEvidenceLevel excludes points whose evidence_level payload exceeds
	// this value (1 = highest quality, 5 = lowest). Zero disables the filter.
	MaxEvidenceLevel int
	// MeshTerms restricts results to points tagged with at least one of
	// these controlled-vocabulary terms. Empty disables the filter.
	MeshTerms []string
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs a similarity search with an optional filter.
	Search(ctx context.Context, collection string, query []float32, k int, filter *SearchFilter) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// CollectionExists checks if a collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)
}
