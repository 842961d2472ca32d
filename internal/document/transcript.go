package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"ledgerline/internal/models"
)

const transcriptTimestamp = "2006-01-02 15:04"

// transcriptMarkdown renders a session as a markdown advisory report:
// context summary first, then the full conversation.
func transcriptMarkdown(sess *models.Session) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Consulting Session Report\n\n")
	fmt.Fprintf(&sb, "**Session:** %s  \n", sess.ID)
	fmt.Fprintf(&sb, "**Persona:** %s  \n", sess.Persona)
	if sess.Context.CurrentProject != "" {
		fmt.Fprintf(&sb, "**Project:** %s  \n", sess.Context.CurrentProject)
	}
	if sess.Context.ImplementationPhase != "" {
		fmt.Fprintf(&sb, "**Phase:** %s  \n", sess.Context.ImplementationPhase)
	}
	fmt.Fprintf(&sb, "**Messages:** %d  \n", sess.Metadata.MessageCount)
	fmt.Fprintf(&sb, "**Generated:** %s\n", time.Now().Format(transcriptTimestamp))

	writeList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n## %s\n\n", title)
		for _, item := range items {
			fmt.Fprintf(&sb, "- %s\n", item)
		}
	}
	writeList("Business Requirements", sess.Context.BusinessRequirements)
	writeList("Technical Specifications", sess.Context.TechnicalSpecs)
	writeList("Stakeholders", sess.Context.Stakeholders)

	if len(sess.Context.Decisions) > 0 {
		sb.WriteString("\n## Decisions\n\n")
		for _, d := range sess.Context.Decisions {
			fmt.Fprintf(&sb, "- **%s** %s\n", d.Timestamp.Format(transcriptTimestamp), d.Text)
		}
	}

	if len(sess.Context.OpenIssues) > 0 {
		sb.WriteString("\n## Issues\n\n")
		for _, issue := range sess.Context.OpenIssues {
			marker := "OPEN"
			if issue.Status == models.IssueResolved {
				marker = "RESOLVED"
			}
			fmt.Fprintf(&sb, "- [%s] %s\n", marker, issue.Text)
		}
	}

	sb.WriteString("\n## Transcript\n")
	for _, msg := range sess.Messages {
		role := "Advisor"
		if msg.Role == models.RoleUser {
			role = "Client"
		}
		fmt.Fprintf(&sb, "\n**%s** (%s):\n\n%s\n", role, msg.Timestamp.Format(transcriptTimestamp), msg.Content)
	}

	return sb.String()
}

// renderPDF turns the markdown report into a printable HTML page and prints
// it to PDF through headless Chromium.
func renderPDF(sess *models.Session) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var htmlBody bytes.Buffer
	if err := md.Convert([]byte(transcriptMarkdown(sess)), &htmlBody); err != nil {
		return nil, fmt.Errorf("markdown conversion failed: %w", err)
	}

	fullHTML := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Consulting Session Report</title>
<style>
  body { font-family: Georgia, 'Times New Roman', serif; font-size: 11pt; line-height: 1.5; color: #1a1a2e; margin: 2cm; }
  h1 { font-size: 18pt; border-bottom: 2px solid #1a1a2e; padding-bottom: 6px; }
  h2 { font-size: 13pt; margin-top: 18px; color: #16213e; }
  li { margin: 3px 0; }
  strong { color: #0f3460; }
  table { border-collapse: collapse; width: 100%%; }
  th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
</style>
</head>
<body>
%s
</body>
</html>`, htmlBody.String())

	return printToPDF(fullHTML)
}

// printToPDF drives headless Chromium to print an HTML document as A4
func printToPDF(htmlContent string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)
	if execPath := os.Getenv("CHROMIUM_PATH"); execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer allocCancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuffer, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(false).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithScale(1.0).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("headless print failed: %w", err)
	}
	return pdfBuffer, nil
}
