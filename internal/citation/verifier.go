package citation

import (
	"context"
	"sort"

	"medassist-ai/internal/contextutil"
)

// Stats summarizes how the generated answer used the supplied evidence.
type Stats struct {
	TotalSupplied   int   `json:"total_supplied"`
	TotalReferenced int   `json:"total_referenced"`
	// Unreferenced lists supplied indices the answer never cited.
	Unreferenced []int `json:"unreferenced,omitempty"`
}

// Verification is the result of cross-referencing answer text against the
// citations supplied to the generator. Only Referenced may ever be persisted
// or rendered with the answer.
type Verification struct {
	// Referenced holds the cited subset, in index order.
	Referenced []Citation `json:"referenced"`
	// Indices are the cited indices, ascending.
	Indices []int `json:"indices"`
	// HasCitations is false when no recognizable marker was found.
	HasCitations bool  `json:"has_citations"`
	Stats        Stats `json:"stats"`
}

// Verify parses the answer text for citation markers and resolves them
// against the supplied set. Indices with no corresponding citation are
// dropped silently; they cannot be mapped and must not be invented.
func Verify(ctx context.Context, answer string, supplied []Citation) Verification {
	logger := contextutil.LoggerFromContext(ctx)

	byIndex := make(map[int]Citation, len(supplied))
	for _, c := range supplied {
		byIndex[c.Index] = c
	}

	referenced := make(map[int]bool)
	for _, marker := range ParseMarkers(answer) {
		for _, idx := range marker.Indices {
			if _, ok := byIndex[idx]; ok {
				referenced[idx] = true
			}
		}
	}

	indices := make([]int, 0, len(referenced))
	for idx := range referenced {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	citations := make([]Citation, 0, len(indices))
	for _, idx := range indices {
		citations = append(citations, byIndex[idx])
	}

	var unreferenced []int
	for _, c := range supplied {
		if !referenced[c.Index] {
			unreferenced = append(unreferenced, c.Index)
		}
	}
	sort.Ints(unreferenced)

	v := Verification{
		Referenced:   citations,
		Indices:      indices,
		HasCitations: len(indices) > 0,
		Stats: Stats{
			TotalSupplied:   len(supplied),
			TotalReferenced: len(indices),
			Unreferenced:    unreferenced,
		},
	}

	switch {
	case len(supplied) > 0 && len(indices) == 0:
		logger.WarnContext(ctx, "answer cited no sources despite supplied evidence",
			"supplied", len(supplied),
		)
	case len(unreferenced) > 0:
		logger.InfoContext(ctx, "answer cited a subset of supplied evidence",
			"supplied", len(supplied),
			"referenced", len(indices),
			"unreferenced", len(unreferenced),
		)
	case len(supplied) > 0:
		logger.InfoContext(ctx, "answer cited all supplied evidence",
			"supplied", len(supplied),
		)
	}
	return v
}
