package medquery

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"medassist-ai/internal/llm"
)

// fakeCompleter returns a canned JSON payload or an error.
type fakeCompleter struct {
	payload string
	err     error
	calls   int
}

func (f *fakeCompleter) CompleteJSON(ctx context.Context, messages []llm.Message, target any) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.payload), target)
}

func TestAnalyzerModelPath(t *testing.T) {
	completer := &fakeCompleter{payload: `{
		"primary_intent": "treatment",
		"secondary_intents": ["guidelines"],
		"question_type": "factual",
		"specificity": "high",
		"entities": {"conditions": ["atrial fibrillation"], "drugs": ["apixaban"]},
		"requirements": {"treatment": true, "guidelines": true},
		"semantic_query": "first-line therapy for new atrial fibrillation",
		"keyword_query": "atrial fibrillation first-line treatment",
		"entity_query": "atrial fibrillation apixaban",
		"vocab_terms": ["Atrial Fibrillation"],
		"specialties": ["cardiology"],
		"urgency": "low",
		"complexity": "moderate"
	}`}

	analyzer := NewAnalyzer(completer)
	u := analyzer.Analyze(context.Background(), "What is the first-line treatment for atrial fibrillation?")

	if completer.calls != 1 {
		t.Fatalf("expected exactly one model call, got %d", completer.calls)
	}
	if u.PrimaryIntent != "treatment" {
		t.Errorf("PrimaryIntent = %q, want treatment", u.PrimaryIntent)
	}
	if u.SemanticQuery != "first-line therapy for new atrial fibrillation" {
		t.Errorf("SemanticQuery = %q, want model rewrite", u.SemanticQuery)
	}
	if !contains(u.Entities.Conditions, "atrial fibrillation") {
		t.Errorf("Conditions = %v, want atrial fibrillation", u.Entities.Conditions)
	}
	if !u.Requirements.Treatment {
		t.Error("Requirements.Treatment should be true")
	}
}

func TestAnalyzerPartialModelResponseGetsDefaults(t *testing.T) {
	// The model omitted most fields; every omission is defaulted.
	completer := &fakeCompleter{payload: `{"primary_intent": "dosing"}`}

	analyzer := NewAnalyzer(completer)
	u := analyzer.Analyze(context.Background(), "metformin dose?")

	if u.PrimaryIntent != "dosing" {
		t.Errorf("PrimaryIntent = %q, want dosing", u.PrimaryIntent)
	}
	if u.Specificity != "low" {
		t.Errorf("Specificity = %q, want default low", u.Specificity)
	}
	if u.Urgency != "low" {
		t.Errorf("Urgency = %q, want default low", u.Urgency)
	}
	if u.Complexity != "simple" {
		t.Errorf("Complexity = %q, want default simple", u.Complexity)
	}
	if u.SemanticQuery != "metformin dose?" {
		t.Errorf("SemanticQuery = %q, want original question", u.SemanticQuery)
	}
	if u.Entities.Conditions == nil || u.VocabTerms == nil {
		t.Error("collections must be defaulted to empty, not nil")
	}
}

func TestAnalyzerFallsBackOnModelFailure(t *testing.T) {
	completer := &fakeCompleter{err: fmt.Errorf("timeout")}

	analyzer := NewAnalyzer(completer)
	u := analyzer.Analyze(context.Background(), "What is the best treatment for hypertension?")

	if completer.calls != 1 {
		t.Fatalf("expected one attempted model call, got %d", completer.calls)
	}
	// Pattern fallback still extracts intent and entities.
	if u.PrimaryIntent != "treatment" {
		t.Errorf("PrimaryIntent = %q, want treatment from pattern fallback", u.PrimaryIntent)
	}
	if !contains(u.Entities.Conditions, "hypertension") {
		t.Errorf("Conditions = %v, want hypertension from pattern fallback", u.Entities.Conditions)
	}
}

func TestAnalyzerNilClientUsesPatterns(t *testing.T) {
	analyzer := NewAnalyzer(nil)
	u := analyzer.Analyze(context.Background(), "side effects of statins?")

	if !u.Requirements.Safety {
		t.Error("expected safety requirement from pattern path")
	}
}
