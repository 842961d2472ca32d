package utils

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxPDFPages bounds how much of a PDF is read; consulting decks and
// requirement documents rarely run longer, and anything bigger is a
// resource-exhaustion hazard.
const maxPDFPages = 100

// ExtractPDF pulls readable text out of a PDF upload. Pages that fail
// extraction are skipped rather than failing the whole document.
func ExtractPDF(data []byte) (*Extraction, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	pages := reader.NumPage()
	if pages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	if pages > maxPDFPages {
		return nil, fmt.Errorf("PDF has %d pages, limit is %d", pages, maxPDFPages)
	}

	var sb strings.Builder
	for n := 1; n <= pages; n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		raw, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		cleaned := collapseSpaces(raw)
		if cleaned == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(cleaned)
		if sb.Len() > MaxExtractedText {
			break
		}
	}

	text, truncated := capText(sb.String())
	return &Extraction{
		Text:      text,
		Pages:     pages,
		Words:     wordCount(text),
		Truncated: truncated,
	}, nil
}
