package citation

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// matcher pairs a surface-form pattern with its index extraction. Matchers
// run in declaration order; spans claimed by an earlier, more specific
// matcher are skipped by later ones.
type matcher struct {
	form    string
	pattern *regexp.Regexp
	expand  func(groups []string) []int
}

var matchers = []matcher{
	{
		form:    FormTag,
		pattern: regexp.MustCompile(`\[CITATION:\s*(\d+)\]`),
		expand:  singleIndex,
	},
	{
		form:    FormRange,
		pattern: regexp.MustCompile(`\[(\d+)\s*-\s*(\d+)\]`),
		expand:  rangeIndices,
	},
	{
		form:    FormList,
		pattern: regexp.MustCompile(`\[(\d+(?:\s*,\s*\d+)*)\]`),
		expand:  listIndices,
	},
	{
		form:    FormParenthetical,
		pattern: regexp.MustCompile(`\((\d+(?:\s*,\s*\d+)*)\)`),
		expand:  listIndices,
	},
}

func singleIndex(groups []string) []int {
	n, err := strconv.Atoi(groups[0])
	if err != nil {
		return nil
	}
	return []int{n}
}

func rangeIndices(groups []string) []int {
	lo, err1 := strconv.Atoi(groups[0])
	hi, err2 := strconv.Atoi(groups[1])
	if err1 != nil || err2 != nil || lo > hi {
		return nil
	}
	indices := make([]int, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		indices = append(indices, n)
	}
	return indices
}

func listIndices(groups []string) []int {
	var indices []int
	for _, part := range strings.Split(groups[0], ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil
		}
		indices = append(indices, n)
	}
	return indices
}

// ParseMarkers scans generated answer text for citation markers in every
// recognized syntax and returns them in text order. Overlapping matches are
// resolved in favor of the more specific syntax.
func ParseMarkers(text string) []Marker {
	var markers []Marker
	var claimed []Marker

	for _, m := range matchers {
		for _, loc := range m.pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if overlapsClaimed(claimed, start, end) {
				continue
			}

			groups := make([]string, 0, len(loc)/2-1)
			for g := 1; g < len(loc)/2; g++ {
				groups = append(groups, text[loc[2*g]:loc[2*g+1]])
			}
			indices := m.expand(groups)
			if len(indices) == 0 {
				continue
			}

			marker := Marker{Form: m.form, Indices: indices, Start: start, End: end}
			markers = append(markers, marker)
			claimed = append(claimed, marker)
		}
	}

	sort.Slice(markers, func(i, j int) bool { return markers[i].Start < markers[j].Start })
	return markers
}

func overlapsClaimed(claimed []Marker, start, end int) bool {
	for _, c := range claimed {
		if start < c.End && end > c.Start {
			return true
		}
	}
	return false
}
