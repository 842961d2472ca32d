package utils

import (
	"strings"
	"unicode"
)

// MaxExtractedText caps how much text an upload may contribute to a session
const MaxExtractedText = 512 * 1024

// Extraction is the text pulled out of an uploaded document
type Extraction struct {
	Text      string
	Pages     int
	Words     int
	Truncated bool
}

// capText enforces the extraction size limit and reports truncation
func capText(text string) (string, bool) {
	if len(text) <= MaxExtractedText {
		return text, false
	}
	// Back up to a rune boundary so we never split a UTF-8 sequence
	cut := MaxExtractedText
	for cut > 0 && !utf8RuneStart(text[cut]) {
		cut--
	}
	return text[:cut], true
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// collapseSpaces squeezes runs of whitespace to a single space while keeping
// line breaks, and strips null bytes that PDF extraction sometimes leaves in
func collapseSpaces(text string) string {
	var out strings.Builder
	out.Grow(len(text))
	pendingSpace := false
	atLineStart := true
	for _, r := range text {
		switch {
		case r == 0:
			continue
		case r == '\n':
			out.WriteRune('\n')
			pendingSpace = false
			atLineStart = true
		case unicode.IsSpace(r):
			pendingSpace = true
		default:
			if pendingSpace && !atLineStart {
				out.WriteRune(' ')
			}
			pendingSpace = false
			atLineStart = false
			out.WriteRune(r)
		}
	}
	return strings.TrimSpace(out.String())
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

// ExtractPlainText handles txt, markdown, csv and json uploads. The bytes
// are taken as-is apart from null stripping and the size cap.
func ExtractPlainText(data []byte) (*Extraction, error) {
	text := strings.ReplaceAll(string(data), "\x00", "")
	text = strings.TrimSpace(text)
	text, truncated := capText(text)
	return &Extraction{
		Text:      text,
		Pages:     1,
		Words:     wordCount(text),
		Truncated: truncated,
	}, nil
}

// Preview returns the leading slice of an extraction for API responses,
// broken at a word boundary where one is close enough.
func Preview(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	head := text[:maxChars]
	if idx := strings.LastIndex(head, " "); idx > maxChars/2 {
		head = head[:idx]
	}
	return head + "..."
}
