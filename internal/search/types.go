package search

// Passage is one retrievable unit of medical evidence (article excerpt or
// guideline section) with its quality metadata.
type Passage struct {
	// ID is the stable passage identifier (UUID, shared with the vector store point ID).
	ID string `json:"id"`
	// Source is the publication or guideline body the passage comes from.
	Source string `json:"source"`
	// Title is the article or section title.
	Title string `json:"title"`
	// Content is the passage text.
	Content string `json:"content"`
	// Score is the base relevance score assigned by the hybrid search, in [0,1].
	Score float64 `json:"score"`
	// EvidenceLevel rates study/source rigor from 1 (highest) to 5 (lowest).
	EvidenceLevel int `json:"evidence_level"`
	// MeshTerms are the controlled-vocabulary subject headings attached to the passage.
	MeshTerms []string `json:"mesh_terms,omitempty"`
	// Year is the publication year, 0 when unknown.
	Year int `json:"year,omitempty"`
	// StudyType describes the study design (e.g., "RCT", "meta-analysis", "guideline").
	StudyType string `json:"study_type,omitempty"`
}

// Query describes a single hybrid search invocation.
type Query struct {
	// Text is the query string.
	Text string
	// MaxResults caps how many passages are returned.
	MaxResults int
	// MaxEvidenceLevel excludes passages rated above this level
	// (1 = highest quality, 5 = lowest). Zero means no filter.
	MaxEvidenceLevel int
	// SemanticWeight scales the vector similarity contribution.
	SemanticWeight float64
	// KeywordWeight scales the lexical match contribution.
	KeywordWeight float64
	// MeshTerms optionally restricts results to passages tagged with
	// at least one of these controlled-vocabulary terms.
	MeshTerms []string
}
