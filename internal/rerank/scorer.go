package rerank

import (
	"context"
	"fmt"

	"medassist-ai/internal/llm"
	"medassist-ai/internal/search"
)

// Scorer rates how well a passage answers a question, 0.0 to 1.0.
type Scorer interface {
	ScoreRelevance(ctx context.Context, question string, passage search.Passage) (float64, error)
}

// completer is the slice of the LLM client the scorer needs.
type completer interface {
	CompleteJSON(ctx context.Context, messages []llm.Message, target any) error
}

// maxScoringContentChars bounds how much passage text is sent per scoring
// call; relevance is judgeable from the opening of a passage.
const maxScoringContentChars = 1000

const scoringPrompt = `You rate how well a medical evidence passage answers a clinical question.
Reply with a single JSON object: {"score": <number>, "reason": "<short reason>"}.
Scoring bands: 0.8-1.0 the passage answers the question directly and completely;
0.6-0.79 relevant and useful but incomplete; 0.4-0.59 tangentially related;
below 0.4 not relevant. Use the full range.`

// LLMScorer asks the language model for a relevance rating per passage.
type LLMScorer struct {
	llm completer
}

// NewLLMScorer creates a model-backed relevance scorer.
func NewLLMScorer(client completer) *LLMScorer {
	return &LLMScorer{llm: client}
}

// ScoreRelevance performs one deterministic scoring call for the passage.
func (s *LLMScorer) ScoreRelevance(ctx context.Context, question string, passage search.Passage) (float64, error) {
	content := passage.Content
	if len(content) > maxScoringContentChars {
		content = content[:maxScoringContentChars]
	}

	var result struct {
		Score  float64 `json:"score"`
		Reason string  `json:"reason"`
	}
	err := s.llm.CompleteJSON(ctx, []llm.Message{
		{Role: "system", Content: scoringPrompt},
		{Role: "user", Content: fmt.Sprintf("Question: %s\n\nPassage (%s): %s", question, passage.Title, content)},
	}, &result)
	if err != nil {
		return 0, fmt.Errorf("failed to score passage %s: %w", passage.ID, err)
	}
	return clamp01(result.Score), nil
}
