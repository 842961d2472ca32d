package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ledgerline/internal/models"
)

func TestBuildSystemPromptIncludesPersonaAndPhase(t *testing.T) {
	b := NewPromptBuilder()
	sess := &models.Session{
		ID:      "sess-prompt",
		Persona: "solution-architect",
		Context: models.SessionContext{
			ImplementationPhase: models.PhaseDesign,
			TechnicalSpecs:      []string{"The system integrates via REST"},
		},
	}

	prompt := b.BuildSystemPrompt(sess, "")
	if !strings.Contains(prompt, "solution architect") {
		t.Errorf("Expected persona instructions in prompt")
	}
	if !strings.Contains(prompt, "design phase") {
		t.Errorf("Expected phase guidance in prompt")
	}
	if !strings.Contains(prompt, "The system integrates via REST") {
		t.Errorf("Expected context summary in prompt")
	}
}

func TestBuildSystemPromptUnknownPersonaFallsBack(t *testing.T) {
	b := NewPromptBuilder()
	sess := &models.Session{ID: "sess-x", Persona: "astrologer"}

	prompt := b.BuildSystemPrompt(sess, "")
	if !strings.Contains(prompt, "implementation consultant") {
		t.Errorf("Unknown persona should fall back to the general template")
	}
}

func TestBuildSystemPromptNilSession(t *testing.T) {
	b := NewPromptBuilder()

	// A session cleared between append and snapshot yields a nil snapshot
	prompt := b.BuildSystemPrompt(nil, "")
	if !strings.Contains(prompt, "implementation consultant") {
		t.Errorf("Expected default persona instructions, got %q", prompt)
	}
}

func TestBuildSystemPromptExtraContext(t *testing.T) {
	b := NewPromptBuilder()
	sess := &models.Session{ID: "sess-x", Persona: DefaultPersona}

	prompt := b.BuildSystemPrompt(sess, "Uploaded document: pricing sheet")
	if !strings.Contains(prompt, "## Additional Context") {
		t.Errorf("Expected additional context section")
	}
	if !strings.Contains(prompt, "pricing sheet") {
		t.Errorf("Expected extra context text in prompt")
	}
}

func TestSuggestionsFallbackAndCopy(t *testing.T) {
	b := NewPromptBuilder()

	got := b.Suggestions("business-analyst")
	if len(got) != 3 {
		t.Fatalf("Expected 3 suggestions, got %d", len(got))
	}

	// Mutating the returned slice must not leak into the builder
	got[0] = "tampered"
	if b.Suggestions("business-analyst")[0] == "tampered" {
		t.Errorf("Suggestions returned the internal slice")
	}

	if len(b.Suggestions("astrologer")) == 0 {
		t.Errorf("Unknown persona should fall back to default suggestions")
	}
}

func TestLoadFromFileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	yaml := `personas:
  general:
    suggestions:
      - "Custom suggestion"
  compliance-officer:
    system: "You are a compliance officer."
    suggestions:
      - "List the regulatory constraints"
`
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatalf("Failed to write persona file: %v", err)
	}

	b := NewPromptBuilder()
	if err := b.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	// Override without a system block keeps the built-in instructions
	sess := &models.Session{ID: "s", Persona: "general"}
	if !strings.Contains(b.BuildSystemPrompt(sess, ""), "implementation consultant") {
		t.Errorf("Override without system text should keep the built-in instructions")
	}
	if got := b.Suggestions("general"); len(got) != 1 || got[0] != "Custom suggestion" {
		t.Errorf("Expected overridden suggestions, got %v", got)
	}

	// New personas are added
	sess.Persona = "compliance-officer"
	if !strings.Contains(b.BuildSystemPrompt(sess, ""), "compliance officer") {
		t.Errorf("Expected new persona to be available after reload")
	}
}

func TestSummarizeContextSections(t *testing.T) {
	now := time.Now()
	sess := &models.Session{
		ID:      "sess-sum",
		Persona: DefaultPersona,
		Context: models.SessionContext{
			CurrentProject:       "ERP Migration",
			ImplementationPhase:  models.PhaseRequirements,
			BusinessRequirements: []string{"r1", "r2", "r3", "r4", "r5", "r6"},
			TechnicalSpecs:       []string{"t1"},
			Decisions: []models.Decision{
				{Text: "Use SAP", Timestamp: now, MessageID: "msg-1"},
			},
			OpenIssues: []models.OpenIssue{
				{Text: "open one", Status: models.IssueOpen},
				{Text: "closed one", Status: models.IssueResolved},
			},
		},
		Metadata: models.SessionMetadata{MessageCount: 3},
	}
	sess.Messages = []models.Message{
		{Role: models.RoleUser, Content: strings.Repeat("x", 250)},
	}

	summary := SummarizeContext(sess)

	if !strings.Contains(summary, "Current project: ERP Migration") {
		t.Errorf("Expected project line")
	}
	// Only the last 5 requirements appear
	if strings.Contains(summary, "- r1\n") {
		t.Errorf("Oldest requirement should be dropped from the summary")
	}
	if !strings.Contains(summary, "- r6\n") {
		t.Errorf("Newest requirement missing")
	}
	if !strings.Contains(summary, "Use SAP") {
		t.Errorf("Expected decision in summary")
	}
	if !strings.Contains(summary, "open one") || strings.Contains(summary, "closed one") {
		t.Errorf("Only open issues belong in the summary")
	}
	// Long message content is truncated
	if !strings.Contains(summary, strings.Repeat("x", 200)+"...") {
		t.Errorf("Expected truncated message content")
	}
	if strings.Contains(summary, strings.Repeat("x", 201)) {
		t.Errorf("Message content not truncated at the cap")
	}
}
