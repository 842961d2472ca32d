package services

import (
	"strings"

	"ledgerline/internal/models"
)

// ContextExtractor derives structured facts from a just-appended message.
// Implementations must never fail: a parse that goes nowhere is simply no
// context update.
type ContextExtractor interface {
	Extract(session *models.Session, msg *models.Message)
}

// KeywordExtractor is the substring-matching heuristic extractor. It is
// deliberately not NLP; false positives and negatives are expected and
// accepted. The matching order and priority rules are part of the behavioral
// contract and must not be reordered.
type KeywordExtractor struct{}

// NewKeywordExtractor creates the default extractor
func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{}
}

// phaseChecks run in this fixed order; every matching check overwrites the
// phase, so the last matching entry wins on multi-phase messages (deployment
// is checked last and therefore takes precedence on ties).
var phaseChecks = []struct {
	phase string
	terms []string
}{
	{models.PhaseRequirements, []string{"requirement", "analyze"}},
	{models.PhaseDesign, []string{"design", "architect"}},
	{models.PhaseImplementation, []string{"implement", "configure"}},
	{models.PhaseTesting, []string{"test", "validate"}},
	{models.PhaseDeployment, []string{"deploy", "go-live"}},
}

// Extract runs all six keyword checks independently against the message.
// A single message can update the phase and add a requirement, a decision,
// and an issue at the same time.
func (e *KeywordExtractor) Extract(session *models.Session, msg *models.Message) {
	lower := strings.ToLower(msg.Content)
	sentences := splitSentences(msg.Content)

	// 1. Phase detection — unmatched content leaves the phase unchanged
	for _, check := range phaseChecks {
		if containsAny(lower, check.terms...) {
			session.Context.ImplementationPhase = check.phase
		}
	}

	// 2. Business requirement
	if strings.Contains(lower, "business") &&
		(strings.Contains(lower, "requirement") || strings.Contains(lower, "process")) {
		if sentence := firstSentenceWith(sentences, "requirement", "need", "must"); sentence != "" {
			appendUnique(&session.Context.BusinessRequirements, sentence)
		}
	}

	// 3. Technical spec
	if containsAny(lower, "technical", "system", "integration") {
		if sentence := firstSentenceWith(sentences, "system", "technical", "integration"); sentence != "" {
			appendUnique(&session.Context.TechnicalSpecs, sentence)
		}
	}

	// 4. Stakeholder
	if containsAny(lower, "stakeholder", "team", "user") {
		if sentence := firstSentenceWith(sentences, "team", "user", "stakeholder"); sentence != "" {
			appendUnique(&session.Context.Stakeholders, sentence)
		}
	}

	// 5. Decision — recorded unconditionally, duplicates allowed
	if containsAny(lower, "decide", "choose", "select") {
		if sentence := firstSentenceWith(sentences, "decide", "choose", "select"); sentence != "" {
			session.Context.Decisions = append(session.Context.Decisions, models.Decision{
				Text:      sentence,
				Timestamp: msg.Timestamp,
				MessageID: msg.ID,
			})
		}
	}

	// 6. Open issue — recorded unconditionally, duplicates allowed
	if containsAny(lower, "issue", "problem", "challenge") {
		if sentence := firstSentenceWith(sentences, "issue", "problem", "challenge"); sentence != "" {
			session.Context.OpenIssues = append(session.Context.OpenIssues, models.OpenIssue{
				Text:      sentence,
				Timestamp: msg.Timestamp,
				Status:    models.IssueOpen,
				MessageID: msg.ID,
			})
		}
	}
}

// splitSentences breaks text on '.', '!' and '?', trimming whitespace and
// dropping empties. Original casing is preserved so extracted sentences read
// the way the user wrote them.
func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

// firstSentenceWith returns the first sentence containing any of the terms
// (case-insensitive), or "" when none match.
func firstSentenceWith(sentences []string, terms ...string) string {
	for _, sentence := range sentences {
		if containsAny(strings.ToLower(sentence), terms...) {
			return sentence
		}
	}
	return ""
}

func containsAny(lower string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// appendUnique appends value unless an exact-equal entry already exists.
// Dedup is exact string equality on full sentences; near-identical phrasing
// is intentionally not collapsed.
func appendUnique(list *[]string, value string) {
	for _, existing := range *list {
		if existing == value {
			return
		}
	}
	*list = append(*list, value)
}
