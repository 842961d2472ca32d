package services

import (
	"testing"
	"time"

	"ledgerline/internal/models"
)

func newTestSession() *models.Session {
	return &models.Session{
		ID:      "sess-test",
		Persona: DefaultPersona,
	}
}

func extract(t *testing.T, sess *models.Session, content string) models.Message {
	t.Helper()
	msg := models.Message{
		ID:        newMessageID(),
		Role:      models.RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
	NewKeywordExtractor().Extract(sess, &msg)
	return msg
}

func TestExtractBusinessRequirement(t *testing.T) {
	sess := newTestSession()
	extract(t, sess, "Our business requirement is to support multi-currency payments. Also hello.")

	if len(sess.Context.BusinessRequirements) != 1 {
		t.Fatalf("Expected 1 requirement, got %d", len(sess.Context.BusinessRequirements))
	}
	want := "Our business requirement is to support multi-currency payments"
	if sess.Context.BusinessRequirements[0] != want {
		t.Errorf("Expected %q, got %q", want, sess.Context.BusinessRequirements[0])
	}
}

func TestExtractRequirementDeduplication(t *testing.T) {
	sess := newTestSession()
	extract(t, sess, "The business requirement is that invoices must be archived.")
	extract(t, sess, "The business requirement is that invoices must be archived.")
	extract(t, sess, "The business requirement is that invoices MUST be archived.")

	// Exact match dedups, different casing does not
	if len(sess.Context.BusinessRequirements) != 2 {
		t.Fatalf("Expected 2 requirements, got %d: %v", len(sess.Context.BusinessRequirements), sess.Context.BusinessRequirements)
	}
}

func TestExtractTechnicalSpec(t *testing.T) {
	sess := newTestSession()
	extract(t, sess, "Great question! The integration with the ERP uses REST APIs.")

	if len(sess.Context.TechnicalSpecs) != 1 {
		t.Fatalf("Expected 1 spec, got %d", len(sess.Context.TechnicalSpecs))
	}
	want := "The integration with the ERP uses REST APIs"
	if sess.Context.TechnicalSpecs[0] != want {
		t.Errorf("Expected %q, got %q", want, sess.Context.TechnicalSpecs[0])
	}
}

func TestExtractStakeholders(t *testing.T) {
	sess := newTestSession()
	extract(t, sess, "The finance team owns the approval workflow.")

	if len(sess.Context.Stakeholders) != 1 {
		t.Fatalf("Expected 1 stakeholder entry, got %d", len(sess.Context.Stakeholders))
	}
}

func TestExtractPhaseTransitions(t *testing.T) {
	sess := newTestSession()

	extract(t, sess, "Let's design the architecture for the billing module.")
	if sess.Context.ImplementationPhase != models.PhaseDesign {
		t.Errorf("Expected phase %q, got %q", models.PhaseDesign, sess.Context.ImplementationPhase)
	}

	extract(t, sess, "Now we validate the approval flows end to end.")
	if sess.Context.ImplementationPhase != models.PhaseTesting {
		t.Errorf("Expected phase %q, got %q", models.PhaseTesting, sess.Context.ImplementationPhase)
	}

	// Nothing phase-related leaves the phase alone
	extract(t, sess, "Thanks, that was helpful.")
	if sess.Context.ImplementationPhase != models.PhaseTesting {
		t.Errorf("Phase changed unexpectedly to %q", sess.Context.ImplementationPhase)
	}
}

func TestExtractPhaseLastMatchWins(t *testing.T) {
	sess := newTestSession()
	// Mentions testing and deployment; deployment is checked last and wins
	extract(t, sess, "After we test everything we deploy to production.")

	if sess.Context.ImplementationPhase != models.PhaseDeployment {
		t.Errorf("Expected phase %q, got %q", models.PhaseDeployment, sess.Context.ImplementationPhase)
	}
}

func TestExtractDecision(t *testing.T) {
	sess := newTestSession()
	msg := extract(t, sess, "We decided to choose SAP over Oracle for the core ledger.")

	if len(sess.Context.Decisions) != 1 {
		t.Fatalf("Expected 1 decision, got %d", len(sess.Context.Decisions))
	}
	d := sess.Context.Decisions[0]
	if d.MessageID != msg.ID {
		t.Errorf("Decision message id mismatch: got %q, want %q", d.MessageID, msg.ID)
	}

	// Decisions are recorded unconditionally, duplicates allowed
	extract(t, sess, "We decided to choose SAP over Oracle for the core ledger.")
	if len(sess.Context.Decisions) != 2 {
		t.Errorf("Expected duplicate decision to be recorded, got %d", len(sess.Context.Decisions))
	}
}

func TestExtractOpenIssue(t *testing.T) {
	sess := newTestSession()
	msg := extract(t, sess, "There is a problem with the data migration from the legacy db.")

	if len(sess.Context.OpenIssues) != 1 {
		t.Fatalf("Expected 1 issue, got %d", len(sess.Context.OpenIssues))
	}
	issue := sess.Context.OpenIssues[0]
	if issue.Status != models.IssueOpen {
		t.Errorf("Expected status %q, got %q", models.IssueOpen, issue.Status)
	}
	if issue.MessageID != msg.ID {
		t.Errorf("Issue message id mismatch")
	}
	if issue.ResolvedAt != nil {
		t.Errorf("New issue should not carry a resolution time")
	}
}

func TestExtractCombinedMessage(t *testing.T) {
	sess := newTestSession()
	extract(t, sess, "We must analyze the business requirement for tax handling. We choose the standard system integration. One problem remains with historic data.")

	if sess.Context.ImplementationPhase != models.PhaseRequirements {
		t.Errorf("Expected phase %q, got %q", models.PhaseRequirements, sess.Context.ImplementationPhase)
	}
	if len(sess.Context.BusinessRequirements) != 1 {
		t.Errorf("Expected 1 requirement, got %d", len(sess.Context.BusinessRequirements))
	}
	if len(sess.Context.TechnicalSpecs) != 1 {
		t.Errorf("Expected 1 spec, got %d", len(sess.Context.TechnicalSpecs))
	}
	if len(sess.Context.Decisions) != 1 {
		t.Errorf("Expected 1 decision, got %d", len(sess.Context.Decisions))
	}
	if len(sess.Context.OpenIssues) != 1 {
		t.Errorf("Expected 1 issue, got %d", len(sess.Context.OpenIssues))
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First one. Second!  Third? ")
	want := []string{"First one", "Second", "Third"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d sentences, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sentence %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
