package citation

// Citation is one evidence source supplied to the answer generator,
// addressable by a stable 1-based index.
type Citation struct {
	// Index is dense and contiguous over the supplied set, 1 = top ranked.
	Index int `json:"index"`
	// PassageID links back to the underlying evidence passage.
	PassageID string `json:"passage_id"`
	Source    string `json:"source"`
	Title     string `json:"title"`
	// EvidenceLevel rates source rigor from 1 (highest) to 5 (lowest).
	EvidenceLevel int    `json:"evidence_level"`
	Year          int    `json:"year,omitempty"`
	StudyType     string `json:"study_type,omitempty"`
	// Confidence is the reranker's bucket for the underlying passage.
	Confidence string `json:"confidence"`
}

// Marker is one citation marker occurrence parsed out of generated text.
type Marker struct {
	// Form identifies the surface syntax that matched.
	Form string
	// Indices are the citation indices the marker resolves to.
	Indices []int
	// Start and End delimit the marker's character span in the source text.
	Start int
	End   int
}

// Marker surface forms, most specific first; the parser claims spans in
// this order so a marker is never counted under two syntaxes.
const (
	FormTag           = "tag"
	FormRange         = "range"
	FormList          = "list"
	FormParenthetical = "parenthetical"
)
