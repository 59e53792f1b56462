package medquery

import (
	"regexp"
	"strings"
)

// Pattern-based understanding is the fallback when the language model is
// unavailable or returns something unparseable. It is deliberately coarse:
// fixed regular-expression families per entity category, keyword-derived
// intents, and length-based complexity/specificity buckets.

var entityPatterns = map[string][]*regexp.Regexp{
	"conditions": {
		regexp.MustCompile(`(?i)\b(diabetes|hypertension|asthma|copd|stroke|cancer|pneumonia|sepsis|anemia|obesity|depression|anxiety|migraine|epilepsy|arthritis|osteoporosis|cirrhosis)\b`),
		regexp.MustCompile(`(?i)\b(atrial fibrillation|heart failure|coronary artery disease|myocardial infarction|kidney disease|pulmonary embolism|deep vein thrombosis)\b`),
		regexp.MustCompile(`(?i)\b\w+itis\b`),
		regexp.MustCompile(`(?i)\b\w+emia\b`),
		regexp.MustCompile(`(?i)\b\w+pathy\b`),
		regexp.MustCompile(`(?i)\b\w+osis\b`),
		regexp.MustCompile(`(?i)\b\w+oma\b`),
		regexp.MustCompile(`(?i)\b(infection|syndrome|disorder|deficiency)\b`),
	},
	"drugs": {
		regexp.MustCompile(`(?i)\b(warfarin|aspirin|metformin|insulin|heparin|amiodarone|digoxin|ibuprofen|acetaminophen|paracetamol|prednisone|albuterol|omeprazole|levothyroxine)\b`),
		regexp.MustCompile(`(?i)\b\w+cillin\b`),
		regexp.MustCompile(`(?i)\b\w+statin\b`),
		regexp.MustCompile(`(?i)\b\w+olol\b`),
		regexp.MustCompile(`(?i)\b\w+pril\b`),
		regexp.MustCompile(`(?i)\b\w+sartan\b`),
		regexp.MustCompile(`(?i)\b\w+azole\b`),
		regexp.MustCompile(`(?i)\b\w+mycin\b`),
		regexp.MustCompile(`(?i)\b(antibiotic|anticoagulant|beta.?blocker|diuretic|steroid|vaccine)s?\b`),
	},
	"procedures": {
		regexp.MustCompile(`(?i)\b(surgery|ablation|transplant|dialysis|chemotherapy|radiotherapy|angioplasty|cardioversion|intubation|stent)\b`),
		regexp.MustCompile(`(?i)\b\w+ectomy\b`),
		regexp.MustCompile(`(?i)\b\w+oscopy\b`),
		regexp.MustCompile(`(?i)\b\w+plasty\b`),
	},
	"symptoms": {
		regexp.MustCompile(`(?i)\b(pain|fever|nausea|vomiting|fatigue|cough|dyspnea|headache|dizziness|palpitations|rash|swelling|bleeding|shortness of breath|chest pain)\b`),
	},
	"tests": {
		regexp.MustCompile(`(?i)\b(mri|ct scan|x.?ray|ultrasound|biopsy|ecg|ekg|echocardiogram|colonoscopy|blood test|urinalysis|a1c|inr|troponin|creatinine)\b`),
	},
	"anatomy": {
		regexp.MustCompile(`(?i)\b(heart|lung|liver|kidney|brain|stomach|intestine|pancreas|thyroid|artery|vein|valve|atrium|ventricle|bone|joint|spine)\b`),
	},
	"demographics": {
		regexp.MustCompile(`(?i)\b(elderly|geriatric|pediatric|neonatal|pregnant|pregnancy|adult|child|children|infant|adolescent|male|female)\b`),
	},
	"outcomes": {
		regexp.MustCompile(`(?i)\b(mortality|survival|remission|recurrence|prognosis|readmission|complication|quality of life)s?\b`),
	},
}

var intentKeywords = map[string]*regexp.Regexp{
	"treatment":  regexp.MustCompile(`(?i)\b(treat|treatment|therapy|therapeutic|manage|management|medication|first.?line|cure)\b`),
	"diagnosis":  regexp.MustCompile(`(?i)\b(diagnos\w*|screen\w*|detect\w*|workup|differential)\b`),
	"mechanism":  regexp.MustCompile(`(?i)\b(mechanism|pathophysiolog\w*|how does|why does|cause[sd]?)\b`),
	"safety":     regexp.MustCompile(`(?i)\b(side effect|adverse|safety|safe|contraindicat\w*|interaction|toxicity)\b`),
	"dosing":     regexp.MustCompile(`(?i)\b(dose|dosing|dosage|how much|titrat\w*|maximum dose)\b`),
	"guidelines": regexp.MustCompile(`(?i)\b(guideline|recommendation|recommended|consensus|standard of care)\b`),
	"comparison": regexp.MustCompile(`(?i)\b(versus|vs\.?|compared? (to|with)|better than|difference between)\b`),
	"outcome":    regexp.MustCompile(`(?i)\b(prognosis|outcome|survival|mortality|life expectancy)\b`),
}

// intentPriority decides which detected intent becomes primary.
var intentPriority = []string{"treatment", "diagnosis", "dosing", "safety", "guidelines", "comparison", "mechanism", "outcome"}

var urgencyPattern = regexp.MustCompile(`(?i)\b(emergency|urgent|immediately|severe|crushing|unconscious|unresponsive|overdose|anaphyla\w*|can.?t breathe|911)\b`)

const (
	complexLengthThreshold  = 300
	moderateLengthThreshold = 100
	highSpecificityTokens   = 10
	mediumSpecificityTokens = 5
)

// patternUnderstanding builds an Understanding from the question text alone.
func patternUnderstanding(question string) Understanding {
	u := Understanding{
		Entities: EntityBag{
			Conditions:   matchEntities(question, "conditions"),
			Drugs:        matchEntities(question, "drugs"),
			Procedures:   matchEntities(question, "procedures"),
			Symptoms:     matchEntities(question, "symptoms"),
			Tests:        matchEntities(question, "tests"),
			Anatomy:      matchEntities(question, "anatomy"),
			Demographics: matchEntities(question, "demographics"),
			Outcomes:     matchEntities(question, "outcomes"),
		},
	}

	detected := make(map[string]bool, len(intentKeywords))
	for intent, pattern := range intentKeywords {
		detected[intent] = pattern.MatchString(question)
	}

	u.Requirements = Requirements{
		Treatment:  detected["treatment"],
		Diagnosis:  detected["diagnosis"],
		Mechanism:  detected["mechanism"],
		Outcome:    detected["outcome"],
		Safety:     detected["safety"],
		Dosing:     detected["dosing"],
		Guidelines: detected["guidelines"],
		Comparison: detected["comparison"],
	}

	for _, intent := range intentPriority {
		if !detected[intent] {
			continue
		}
		if u.PrimaryIntent == "" {
			u.PrimaryIntent = intent
		} else {
			u.SecondaryIntents = append(u.SecondaryIntents, intent)
		}
	}

	if detected["comparison"] {
		u.QuestionType = "comparison"
	} else if u.PrimaryIntent != "" {
		u.QuestionType = "factual"
	}

	if urgencyPattern.MatchString(question) {
		u.Urgency = "high"
	} else {
		u.Urgency = "low"
	}

	switch {
	case len(question) > complexLengthThreshold:
		u.Complexity = "complex"
	case len(question) > moderateLengthThreshold:
		u.Complexity = "moderate"
	default:
		u.Complexity = "simple"
	}

	tokenCount := len(strings.Fields(question))
	switch {
	case tokenCount > highSpecificityTokens:
		u.Specificity = "high"
	case tokenCount > mediumSpecificityTokens:
		u.Specificity = "medium"
	default:
		u.Specificity = "low"
	}

	// Candidate controlled-vocabulary terms come from the strongest
	// entity categories; anything finer needs the model path.
	u.VocabTerms = append([]string{}, u.Entities.Conditions...)
	u.VocabTerms = append(u.VocabTerms, u.Entities.Drugs...)

	entities := u.AllEntities()
	if len(entities) > 0 {
		u.EntityQuery = strings.Join(entities, " ")
	}

	applyDefaults(&u, question)
	return u
}

// matchEntities unions all pattern matches for a category, case-insensitively deduplicated.
func matchEntities(question, category string) []string {
	seen := make(map[string]struct{})
	matches := []string{}
	for _, pattern := range entityPatterns[category] {
		for _, match := range pattern.FindAllString(question, -1) {
			key := strings.ToLower(strings.TrimSpace(match))
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			matches = append(matches, key)
		}
	}
	return matches
}

// applyDefaults fills every unset field so callers never see a zero value
// where the pipeline expects a bucket name or a non-nil collection.
func applyDefaults(u *Understanding, question string) {
	if u.PrimaryIntent == "" {
		u.PrimaryIntent = "general"
	}
	if u.QuestionType == "" {
		u.QuestionType = "open"
	}
	if u.Specificity == "" {
		u.Specificity = "low"
	}
	if u.Urgency == "" {
		u.Urgency = "low"
	}
	if u.Complexity == "" {
		u.Complexity = "simple"
	}
	if u.SemanticQuery == "" {
		u.SemanticQuery = question
	}
	if u.KeywordQuery == "" {
		u.KeywordQuery = question
	}
	if u.EntityQuery == "" {
		u.EntityQuery = question
	}
	if u.SecondaryIntents == nil {
		u.SecondaryIntents = []string{}
	}
	if u.VocabTerms == nil {
		u.VocabTerms = []string{}
	}
	if u.Specialties == nil {
		u.Specialties = []string{}
	}
	if u.Entities.Conditions == nil {
		u.Entities.Conditions = []string{}
	}
	if u.Entities.Drugs == nil {
		u.Entities.Drugs = []string{}
	}
	if u.Entities.Procedures == nil {
		u.Entities.Procedures = []string{}
	}
	if u.Entities.Symptoms == nil {
		u.Entities.Symptoms = []string{}
	}
	if u.Entities.Tests == nil {
		u.Entities.Tests = []string{}
	}
	if u.Entities.Anatomy == nil {
		u.Entities.Anatomy = []string{}
	}
	if u.Entities.Demographics == nil {
		u.Entities.Demographics = []string{}
	}
	if u.Entities.Outcomes == nil {
		u.Entities.Outcomes = []string{}
	}
}
