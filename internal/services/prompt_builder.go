package services

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"ledgerline/internal/models"
)

// PersonaTemplate is one prompting profile: a system instruction block plus
// the static follow-up suggestions offered after each reply.
type PersonaTemplate struct {
	System      string   `yaml:"system"`
	Suggestions []string `yaml:"suggestions"`
}

// personaFile is the YAML override file shape
type personaFile struct {
	Personas map[string]PersonaTemplate `yaml:"personas"`
}

// PromptBuilder assembles persona- and phase-specific system prompts around
// the session's context summary. Templates are static; an optional YAML file
// can override or add personas and is hot-swapped atomically on reload.
type PromptBuilder struct {
	mu       sync.RWMutex
	personas map[string]PersonaTemplate
}

// NewPromptBuilder creates a builder seeded with the built-in personas
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{personas: defaultPersonas()}
}

func defaultPersonas() map[string]PersonaTemplate {
	return map[string]PersonaTemplate{
		"general": {
			System: `You are an experienced enterprise implementation consultant. You help teams plan, scope, and deliver business software projects. Be concrete and pragmatic; ask clarifying questions when requirements are vague.`,
			Suggestions: []string{
				"Summarize the requirements gathered so far",
				"What are the main risks in the current plan?",
				"Draft a high-level project timeline",
			},
		},
		"business-analyst": {
			System: `You are a senior business analyst. Focus on eliciting business requirements, mapping processes, and identifying stakeholders. Translate vague business goals into verifiable requirements and call out gaps explicitly.`,
			Suggestions: []string{
				"List the business requirements captured in this conversation",
				"Which stakeholders still need to be consulted?",
				"Turn the last requirement into acceptance criteria",
			},
		},
		"solution-architect": {
			System: `You are a solution architect. Focus on system design, integration points, and technical trade-offs. Recommend concrete architectures and name their constraints; prefer boring technology unless a requirement forces otherwise.`,
			Suggestions: []string{
				"Sketch the integration architecture for what we discussed",
				"What are the technical risks of this design?",
				"Compare the options we considered and recommend one",
			},
		},
		"project-manager": {
			System: `You are a delivery-focused project manager. Track decisions, open issues, and phase progress. Keep answers organized around actions, owners, and dates; flag unresolved issues before they block the plan.`,
			Suggestions: []string{
				"List the open issues and who should own them",
				"What decisions are we still missing?",
				"Build a status summary for the steering committee",
			},
		},
	}
}

// phaseGuidance is appended to the system prompt based on the detected phase
var phaseGuidance = map[string]string{
	models.PhaseDiscovery:      "The conversation is in early discovery. Prioritize understanding the business context before proposing solutions.",
	models.PhaseRequirements:   "The conversation is in the requirements phase. Drive toward complete, testable requirements and note assumptions.",
	models.PhaseDesign:         "The conversation is in the design phase. Ground recommendations in the captured requirements and make trade-offs explicit.",
	models.PhaseImplementation: "The conversation is in the implementation phase. Be specific about configuration, sequencing, and rollout steps.",
	models.PhaseTesting:        "The conversation is in the testing phase. Focus on validation coverage, test data, and acceptance criteria.",
	models.PhaseDeployment:     "The conversation is in the deployment phase. Focus on cutover planning, rollback paths, and go-live readiness.",
}

// BuildSystemPrompt composes the persona instructions, phase guidance, the
// session context summary, and any caller-supplied extra context into one
// system message. A nil session (cleared mid-request) falls back to the
// default persona with no context.
func (b *PromptBuilder) BuildSystemPrompt(sess *models.Session, extraContext string) string {
	if sess == nil {
		sess = &models.Session{Persona: DefaultPersona}
	}

	b.mu.RLock()
	tpl, ok := b.personas[sess.Persona]
	if !ok {
		tpl = b.personas[DefaultPersona]
	}
	b.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString(tpl.System)
	sb.WriteString("\n\n")

	if guidance, ok := phaseGuidance[sess.Context.ImplementationPhase]; ok {
		sb.WriteString(guidance)
		sb.WriteString("\n\n")
	}

	sb.WriteString(SummarizeContext(sess))

	if extraContext != "" {
		sb.WriteString("\n## Additional Context\n")
		sb.WriteString(extraContext)
		sb.WriteString("\n")
	}

	return sb.String()
}

// Suggestions returns the static follow-up suggestions for a persona. These
// are a lookup table, never model-generated.
func (b *PromptBuilder) Suggestions(persona string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tpl, ok := b.personas[persona]
	if !ok {
		tpl = b.personas[DefaultPersona]
	}
	out := make([]string, len(tpl.Suggestions))
	copy(out, tpl.Suggestions)
	return out
}

// Personas lists the known persona names
func (b *PromptBuilder) Personas() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.personas))
	for name := range b.personas {
		names = append(names, name)
	}
	return names
}

// LoadFromFile merges YAML persona overrides on top of the built-in set.
// The swap is atomic: readers never observe a half-applied reload.
func (b *PromptBuilder) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read persona file: %w", err)
	}

	var file personaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse persona YAML: %w", err)
	}

	merged := defaultPersonas()
	for name, tpl := range file.Personas {
		if tpl.System == "" {
			// Keep the built-in system text when an override only changes suggestions
			if base, ok := merged[name]; ok {
				tpl.System = base.System
			}
		}
		merged[name] = tpl
	}

	b.mu.Lock()
	b.personas = merged
	b.mu.Unlock()

	log.Printf("✅ [PROMPT-BUILDER] Loaded %d persona templates from %s", len(merged), path)
	return nil
}
