package services

import (
	"fmt"
	"strings"

	"ledgerline/internal/models"
)

const (
	summaryRequirements = 5
	summarySpecs        = 3
	summaryDecisions    = 3
	summaryIssues       = 3
	summaryMessages     = 5
	summaryContentMax   = 200
)

// SummarizeContext renders a session's derived context and recent messages
// into a flat text block for prompt injection. It is never returned to an
// external caller directly.
func SummarizeContext(sess *models.Session) string {
	var sb strings.Builder

	sb.WriteString("## Conversation Context\n\n")
	sb.WriteString(fmt.Sprintf("Persona: %s\n", sess.Persona))
	sb.WriteString(fmt.Sprintf("Implementation phase: %s\n", sess.Context.ImplementationPhase))
	sb.WriteString(fmt.Sprintf("Messages exchanged: %d\n", sess.Metadata.MessageCount))
	if sess.Context.CurrentProject != "" {
		sb.WriteString(fmt.Sprintf("Current project: %s\n", sess.Context.CurrentProject))
	}

	if reqs := lastN(sess.Context.BusinessRequirements, summaryRequirements); len(reqs) > 0 {
		sb.WriteString("\n### Business Requirements\n")
		for _, r := range reqs {
			sb.WriteString(fmt.Sprintf("- %s\n", r))
		}
	}

	if specs := lastN(sess.Context.TechnicalSpecs, summarySpecs); len(specs) > 0 {
		sb.WriteString("\n### Technical Specifications\n")
		for _, t := range specs {
			sb.WriteString(fmt.Sprintf("- %s\n", t))
		}
	}

	decisions := sess.Context.Decisions
	if len(decisions) > summaryDecisions {
		decisions = decisions[len(decisions)-summaryDecisions:]
	}
	if len(decisions) > 0 {
		sb.WriteString("\n### Decisions\n")
		for _, d := range decisions {
			sb.WriteString(fmt.Sprintf("- [%s] %s\n", d.Timestamp.Format("2006-01-02 15:04"), d.Text))
		}
	}

	open := make([]models.OpenIssue, 0, len(sess.Context.OpenIssues))
	for _, issue := range sess.Context.OpenIssues {
		if issue.Status == models.IssueOpen {
			open = append(open, issue)
		}
	}
	if len(open) > summaryIssues {
		open = open[len(open)-summaryIssues:]
	}
	if len(open) > 0 {
		sb.WriteString("\n### Open Issues\n")
		for _, issue := range open {
			sb.WriteString(fmt.Sprintf("- %s\n", issue.Text))
		}
	}

	msgs := sess.Messages
	if len(msgs) > summaryMessages {
		msgs = msgs[len(msgs)-summaryMessages:]
	}
	if len(msgs) > 0 {
		sb.WriteString("\n### Recent Messages\n")
		for _, m := range msgs {
			sb.WriteString(fmt.Sprintf("[%s] %s\n", m.Role, truncateContent(m.Content, summaryContentMax)))
		}
	}

	return sb.String()
}

func lastN(values []string, n int) []string {
	if len(values) > n {
		return values[len(values)-n:]
	}
	return values
}

func truncateContent(content string, max int) string {
	if len(content) <= max {
		return content
	}
	return content[:max] + "..."
}
