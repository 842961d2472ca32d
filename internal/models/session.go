package models

import "time"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Implementation phases inferred from conversation content
const (
	PhaseDiscovery      = "discovery"
	PhaseRequirements   = "requirements"
	PhaseDesign         = "design"
	PhaseImplementation = "implementation"
	PhaseTesting        = "testing"
	PhaseDeployment     = "deployment"
)

// Issue statuses
const (
	IssueOpen     = "open"
	IssueResolved = "resolved"
)

// Message is a single conversation turn. Messages are immutable once written.
type Message struct {
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  MessageMetadata `json:"metadata"`
}

// MessageMetadata snapshots persona and phase at creation time
type MessageMetadata struct {
	Persona string `json:"persona"`
	Phase   string `json:"phase"`
}

// Decision is a derived context entry pointing back at the message it came from
type Decision struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	MessageID string    `json:"messageId"`
}

// OpenIssue tracks a problem surfaced in conversation. Status is the only
// mutable field; the originating message itself is never altered.
type OpenIssue struct {
	Text       string     `json:"text"`
	Timestamp  time.Time  `json:"timestamp"`
	Status     string     `json:"status"`
	MessageID  string     `json:"messageId"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// SessionContext is the derived-state bundle updated by the context extractor
type SessionContext struct {
	CurrentProject       string      `json:"currentProject,omitempty"`
	BusinessRequirements []string    `json:"businessRequirements"`
	TechnicalSpecs       []string    `json:"technicalSpecs"`
	ImplementationPhase  string      `json:"implementationPhase"`
	Stakeholders         []string    `json:"stakeholders"`
	Decisions            []Decision  `json:"decisions"`
	OpenIssues           []OpenIssue `json:"openIssues"`
}

// AnalysisRecord captures an analysis result or generated artifact
type AnalysisRecord struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Result    string    `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionMetadata holds lifecycle bookkeeping. MessageCount is monotonic and
// unaffected by history trimming.
type SessionMetadata struct {
	CreatedAt          time.Time        `json:"createdAt"`
	LastActivity       time.Time        `json:"lastActivity"`
	MessageCount       int              `json:"messageCount"`
	AnalysisResults    []AnalysisRecord `json:"analysisResults"`
	GeneratedArtifacts []AnalysisRecord `json:"generatedArtifacts"`
}

// Session is one conversation's full in-memory state
type Session struct {
	ID       string          `json:"id"`
	Persona  string          `json:"persona"`
	Messages []Message       `json:"messages"`
	Context  SessionContext  `json:"context"`
	Metadata SessionMetadata `json:"metadata"`
}

// SessionSummary is the read-only snapshot returned by the store's Summary
type SessionSummary struct {
	SessionID      string          `json:"sessionId"`
	Persona        string          `json:"persona"`
	Context        SessionContext  `json:"context"`
	Metadata       SessionMetadata `json:"metadata"`
	RecentMessages []Message       `json:"recentMessages"`
}
