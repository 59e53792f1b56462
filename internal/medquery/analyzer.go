package medquery

import (
	"context"
	"fmt"

	"medassist-ai/internal/contextutil"
	"medassist-ai/internal/llm"
	"medassist-ai/internal/resilient"
)

// completer is the slice of the LLM client the analyzer needs.
type completer interface {
	CompleteJSON(ctx context.Context, messages []llm.Message, target any) error
}

// Analyzer turns a raw question into a structured Understanding.
// The language model is the primary path; any call or parse failure falls
// back to pattern-based extraction and is never surfaced to the caller.
type Analyzer struct {
	llm completer
}

// NewAnalyzer creates a new query analyzer.
func NewAnalyzer(client completer) *Analyzer {
	return &Analyzer{llm: client}
}

const understandingPrompt = `You are a medical query analyst. Extract a structured representation of the user's question as a single JSON object with exactly these fields:
{
  "primary_intent": "treatment|diagnosis|mechanism|safety|dosing|guidelines|comparison|outcome|general",
  "secondary_intents": ["..."],
  "question_type": "factual|comparison|open",
  "specificity": "high|medium|low",
  "entities": {
    "conditions": [], "drugs": [], "procedures": [], "symptoms": [],
    "tests": [], "anatomy": [], "demographics": [], "outcomes": []
  },
  "requirements": {
    "treatment": false, "diagnosis": false, "mechanism": false, "outcome": false,
    "safety": false, "dosing": false, "guidelines": false, "comparison": false
  },
  "semantic_query": "a rewrite optimized for semantic similarity search",
  "keyword_query": "a rewrite optimized for keyword search",
  "entity_query": "the key entities joined as a search string",
  "vocab_terms": ["candidate MeSH subject headings"],
  "specialties": ["relevant medical specialties"],
  "urgency": "high|low",
  "complexity": "complex|moderate|simple"
}
Respond with the JSON object only.`

// Analyze returns a fully-populated Understanding for the question.
// It never returns an error: the model path is attempted first, and any
// failure degrades to the pattern-based fallback.
func (a *Analyzer) Analyze(ctx context.Context, question string) Understanding {
	logger := contextutil.LoggerFromContext(ctx)

	var u Understanding
	fromModel := false
	if a.llm != nil {
		u, fromModel = resilient.Call(ctx, "query understanding", patternUnderstanding(question),
			func(ctx context.Context) (Understanding, error) {
				var parsed Understanding
				err := a.llm.CompleteJSON(ctx, []llm.Message{
					{Role: "system", Content: understandingPrompt},
					{Role: "user", Content: fmt.Sprintf("Question: %s", question)},
				}, &parsed)
				if err != nil {
					return Understanding{}, err
				}
				applyDefaults(&parsed, question)
				return parsed, nil
			})
	} else {
		u = patternUnderstanding(question)
	}

	logger.DebugContext(ctx, "query understanding",
		"from_model", fromModel,
		"primary_intent", u.PrimaryIntent,
		"entities", len(u.AllEntities()),
		"urgency", u.Urgency,
	)
	return u
}
