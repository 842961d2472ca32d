package utils

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	got, err := ExtractPlainText([]byte("  hello\x00 world  "))
	if err != nil {
		t.Fatalf("ExtractPlainText failed: %v", err)
	}
	if got.Text != "hello world" {
		t.Errorf("Expected cleaned text, got %q", got.Text)
	}
	if got.Words != 2 {
		t.Errorf("Expected 2 words, got %d", got.Words)
	}
	if got.Truncated {
		t.Errorf("Small input must not be truncated")
	}
}

func TestExtractPlainTextTruncation(t *testing.T) {
	big := strings.Repeat("a", MaxExtractedText+100)
	got, err := ExtractPlainText([]byte(big))
	if err != nil {
		t.Fatalf("ExtractPlainText failed: %v", err)
	}
	if !got.Truncated {
		t.Errorf("Expected truncation flag")
	}
	if len(got.Text) > MaxExtractedText {
		t.Errorf("Text exceeds cap: %d", len(got.Text))
	}
}

func TestCollapseSpaces(t *testing.T) {
	got := collapseSpaces("a  b\t c\nd \n e")
	want := "a b c\nd\ne"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short", 100); got != "short" {
		t.Errorf("Short text should pass through, got %q", got)
	}

	long := strings.Repeat("word ", 50)
	got := Preview(long, 52)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Expected ellipsis, got %q", got)
	}
	if strings.HasSuffix(strings.TrimSuffix(got, "..."), "wor") {
		t.Errorf("Preview should break at a word boundary, got %q", got)
	}
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatalf("Failed to create zip entry: %v", err)
	}
	f.Write([]byte(documentXML))
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	doc := buildDOCX(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
<w:p><w:r><w:t>Second</w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
</w:body>
</w:document>`)

	got, err := ExtractDOCX(doc)
	if err != nil {
		t.Fatalf("ExtractDOCX failed: %v", err)
	}
	lines := strings.Split(got.Text, "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 paragraphs, got %d: %q", len(lines), got.Text)
	}
	if lines[0] != "First paragraph." {
		t.Errorf("Unexpected first paragraph %q", lines[0])
	}
	if lines[1] != "Second paragraph." {
		t.Errorf("Runs should be joined with a space, got %q", lines[1])
	}
	if got.Words != 4 {
		t.Errorf("Expected 4 words, got %d", got.Words)
	}
}

func TestExtractDOCXMissingDocument(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, _ := w.Create("other.xml")
	f.Write([]byte("<x/>"))
	w.Close()

	if _, err := ExtractDOCX(buf.Bytes()); err == nil {
		t.Errorf("Expected error for archive without word/document.xml")
	}
}

func TestExtractDOCXNotAZip(t *testing.T) {
	if _, err := ExtractDOCX([]byte("plain text, not a zip")); err == nil {
		t.Errorf("Expected error for non-zip input")
	}
}

func TestExtractPDFInvalid(t *testing.T) {
	if _, err := ExtractPDF([]byte("not a pdf")); err == nil {
		t.Errorf("Expected error for invalid PDF data")
	}
}
