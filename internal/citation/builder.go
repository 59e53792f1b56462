package citation

import (
	"fmt"
	"strings"

	"medassist-ai/internal/rerank"
)

// maxExcerptChars bounds how much of each passage goes into the generation
// context so a handful of long passages cannot crowd out the rest.
const maxExcerptChars = 2000

// Build assigns dense 1-based indices to the ranked passages in rank order
// and formats the matching evidence block for the generation prompt.
func Build(ranked []rerank.RankedPassage) ([]Citation, string) {
	if len(ranked) == 0 {
		return nil, ""
	}

	citations := make([]Citation, 0, len(ranked))
	var block strings.Builder

	block.WriteString("Evidence sources. When a statement draws on a source, cite it with its bracketed number, e.g. [1] or [1,2].\n")
	for i, rp := range ranked {
		index := i + 1
		citations = append(citations, Citation{
			Index:         index,
			PassageID:     rp.ID,
			Source:        rp.Source,
			Title:         rp.Title,
			EvidenceLevel: rp.EvidenceLevel,
			Year:          rp.Year,
			StudyType:     rp.StudyType,
			Confidence:    rp.Confidence,
		})

		block.WriteString(fmt.Sprintf("\n[%d] %s", index, rp.Title))
		block.WriteString(fmt.Sprintf("\n%s\n", sourceLine(rp)))
		block.WriteString(excerpt(rp.Content))
		block.WriteString("\n")
	}
	return citations, block.String()
}

func sourceLine(rp rerank.RankedPassage) string {
	parts := []string{rp.Source}
	if rp.Year > 0 {
		parts = append(parts, fmt.Sprintf("%d", rp.Year))
	}
	if rp.StudyType != "" {
		parts = append(parts, rp.StudyType)
	}
	parts = append(parts, fmt.Sprintf("evidence level %d", rp.EvidenceLevel))
	return strings.Join(parts, ", ")
}

func excerpt(content string) string {
	if len(content) <= maxExcerptChars {
		return content
	}
	return content[:maxExcerptChars] + "…"
}
