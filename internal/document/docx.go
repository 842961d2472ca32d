package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"ledgerline/internal/models"
)

// renderDOCX builds a minimal but valid WordprocessingML package from the
// session report. Each markdown line becomes one paragraph; headings map to
// the built-in Heading styles so Word shows an outline.
func renderDOCX(sess *models.Session) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`,
		"word/document.xml": documentXML(sess),
	}

	for name, content := range parts {
		f, err := w.Create(name)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// documentXML renders the main document part from the markdown report
func documentXML(sess *models.Session) string {
	var body strings.Builder
	for _, line := range strings.Split(transcriptMarkdown(sess), "\n") {
		line = strings.TrimRight(line, " ")
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "# "):
			body.WriteString(styledParagraph("Heading1", strings.TrimPrefix(line, "# ")))
		case strings.HasPrefix(line, "## "):
			body.WriteString(styledParagraph("Heading2", strings.TrimPrefix(line, "## ")))
		case strings.HasPrefix(line, "- "):
			body.WriteString(styledParagraph("ListParagraph", "• "+strings.TrimPrefix(line, "- ")))
		default:
			body.WriteString(styledParagraph("", stripEmphasis(line)))
		}
	}

	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
` + body.String() + `</w:body>
</w:document>`
}

func styledParagraph(style, text string) string {
	var sb strings.Builder
	sb.WriteString("<w:p>")
	if style != "" {
		fmt.Fprintf(&sb, `<w:pPr><w:pStyle w:val="%s"/></w:pPr>`, style)
	}
	fmt.Fprintf(&sb, `<w:r><w:t xml:space="preserve">%s</w:t></w:r>`, xmlEscape(stripEmphasis(text)))
	sb.WriteString("</w:p>\n")
	return sb.String()
}

// stripEmphasis drops markdown bold markers; runs are all plain text here
func stripEmphasis(line string) string {
	return strings.ReplaceAll(line, "**", "")
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	// EscapeText only fails on a writer error; bytes.Buffer never errors
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
