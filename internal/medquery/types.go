package medquery

import "strings"

// Understanding is the structured representation of a medical question.
// Every field is always populated: detections that fail default to empty
// collections or the documented "general"/"low"/"simple" values, so
// downstream stages never see a nil or missing field.
type Understanding struct {
	// PrimaryIntent is the dominant intent tag (e.g., "treatment", "diagnosis", "general").
	PrimaryIntent string `json:"primary_intent"`
	// SecondaryIntents are additional detected intent tags.
	SecondaryIntents []string `json:"secondary_intents"`
	// QuestionType classifies the surface form (e.g., "factual", "comparison", "open").
	QuestionType string `json:"question_type"`
	// Specificity is "high", "medium" or "low".
	Specificity string `json:"specificity"`
	// Entities is the structured entity bag extracted from the question.
	Entities EntityBag `json:"entities"`
	// Requirements flags what kind of evidence the question calls for.
	Requirements Requirements `json:"requirements"`
	// SemanticQuery is the rewrite optimized for embedding similarity search.
	SemanticQuery string `json:"semantic_query"`
	// KeywordQuery is the rewrite optimized for lexical search.
	KeywordQuery string `json:"keyword_query"`
	// EntityQuery is the rewrite built from extracted entities.
	EntityQuery string `json:"entity_query"`
	// VocabTerms are candidate controlled-vocabulary (MeSH) terms.
	VocabTerms []string `json:"vocab_terms"`
	// Specialties are detected domain/specialty tags (e.g., "cardiology").
	Specialties []string `json:"specialties"`
	// Urgency is "high" or "low".
	Urgency string `json:"urgency"`
	// Complexity is "complex", "moderate" or "simple".
	Complexity string `json:"complexity"`
}

// EntityBag groups extracted entities by category. Each slice is never nil.
type EntityBag struct {
	Conditions   []string `json:"conditions"`
	Drugs        []string `json:"drugs"`
	Procedures   []string `json:"procedures"`
	Symptoms     []string `json:"symptoms"`
	Tests        []string `json:"tests"`
	Anatomy      []string `json:"anatomy"`
	Demographics []string `json:"demographics"`
	Outcomes     []string `json:"outcomes"`
}

// Requirements flags which evidence aspects the question asks about.
type Requirements struct {
	Treatment  bool `json:"treatment"`
	Diagnosis  bool `json:"diagnosis"`
	Mechanism  bool `json:"mechanism"`
	Outcome    bool `json:"outcome"`
	Safety     bool `json:"safety"`
	Dosing     bool `json:"dosing"`
	Guidelines bool `json:"guidelines"`
	Comparison bool `json:"comparison"`
}

// AllEntities returns every extracted entity across all categories, in a
// stable category order, without duplicates (case-insensitive).
func (u *Understanding) AllEntities() []string {
	groups := [][]string{
		u.Entities.Conditions, u.Entities.Drugs, u.Entities.Procedures,
		u.Entities.Symptoms, u.Entities.Tests, u.Entities.Anatomy,
		u.Entities.Demographics, u.Entities.Outcomes,
	}

	seen := make(map[string]struct{})
	var all []string
	for _, group := range groups {
		for _, entity := range group {
			key := strings.ToLower(strings.TrimSpace(entity))
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			all = append(all, entity)
		}
	}
	return all
}

// IsMedical reports whether the question is recognizably medical: it carries
// at least one extracted entity, one evidence requirement, or a non-general
// intent. Non-medical questions skip retrieval entirely.
func (u *Understanding) IsMedical() bool {
	if len(u.AllEntities()) > 0 {
		return true
	}
	if u.Requirements.AnyRequirement() {
		return true
	}
	return u.PrimaryIntent != "" && u.PrimaryIntent != "general"
}

// AnyRequirement reports whether at least one evidence requirement is set.
func (r Requirements) AnyRequirement() bool {
	return r.Treatment || r.Diagnosis || r.Mechanism || r.Outcome || r.Safety || r.Dosing || r.Guidelines || r.Comparison
}
