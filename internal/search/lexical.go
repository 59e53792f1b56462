package search

import (
	"strings"
	"unicode"
)

const (
	lexicalLengthScale = 10.0
	maxLexicalScore    = 1.0
	titleMatchBonus    = 0.1
)

var lexicalStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "the": {}, "to": {}, "was": {}, "were": {}, "with": {}, "what": {}, "which": {},
	"how": {}, "does": {}, "do": {}, "can": {}, "should": {},
}

// lexicalScore computes a lightweight lexical relevance score for a passage
// relative to a query. The score is normalized to [0,1] so it can be blended
// with vector similarity scores.
func lexicalScore(query, content, title string) float64 {
	queryTokens := filterStopwords(tokenize(query))
	if len(queryTokens) == 0 {
		return 0
	}

	contentTokens := tokenize(content)
	if len(contentTokens) == 0 {
		return 0
	}

	contentFreq := make(map[string]int, len(contentTokens))
	for _, token := range contentTokens {
		contentFreq[token]++
	}

	var rawMatches int
	for _, token := range queryTokens {
		rawMatches += contentFreq[token]
	}

	score := (float64(rawMatches) / (1 + float64(len(contentTokens)))) * lexicalLengthScale

	if title != "" {
		titleTokens := tokenize(title)
		if len(titleTokens) > 0 {
			titleSet := make(map[string]struct{}, len(titleTokens))
			for _, token := range titleTokens {
				titleSet[token] = struct{}{}
			}
			var titleMatches int
			for _, token := range queryTokens {
				if _, ok := titleSet[token]; ok {
					titleMatches++
				}
			}
			score += float64(titleMatches) * titleMatchBonus
		}
	}

	if score > maxLexicalScore {
		return maxLexicalScore
	}
	if score < 0 {
		return 0
	}
	return score
}

func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	clean := builder.String()
	tokens := strings.Fields(clean)
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

func filterStopwords(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}

	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := lexicalStopwords[token]; isStop {
			continue
		}
		result = append(result, token)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
