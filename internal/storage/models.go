package storage

import "time"

// PassageRecord represents an indexed evidence passage in the database.
type PassageRecord struct {
	ID            string // UUID (same as Qdrant point ID)
	Source        string // Publication or guideline body
	Title         string
	Content       string
	EvidenceLevel int      // 1 (highest quality) to 5 (lowest)
	MeshTerms     []string // Controlled-vocabulary subject headings
	Year          int      // Publication year, 0 when unknown
	StudyType     string   // e.g., "RCT", "meta-analysis", "guideline"
	CreatedAt     time.Time
}
