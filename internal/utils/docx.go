package utils

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const wordprocessingNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// ExtractDOCX pulls paragraph text out of a Word upload. Only
// word/document.xml is consulted; headers, footers and comments are ignored.
func ExtractDOCX(data []byte) (*Extraction, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open DOCX: %w", err)
	}

	var docXML []byte
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to open document.xml: %w", err)
			}
			docXML, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to read document.xml: %w", err)
			}
			break
		}
	}
	if docXML == nil {
		return nil, fmt.Errorf("not a DOCX file: word/document.xml missing")
	}

	text, truncated := capText(paragraphsFromDocumentXML(docXML))
	words := wordCount(text)

	// Word does not store a page count in the document part; estimate one
	// so upload responses can report something useful.
	pages := words/500 + 1

	return &Extraction{
		Text:      text,
		Pages:     pages,
		Words:     words,
		Truncated: truncated,
	}, nil
}

// paragraphsFromDocumentXML walks the WordprocessingML token stream and joins
// the character data of each w:p element into one line.
func paragraphsFromDocumentXML(docXML []byte) string {
	decoder := xml.NewDecoder(bytes.NewReader(docXML))

	var doc strings.Builder
	var para strings.Builder
	depth := 0

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Space == wordprocessingNS && t.Name.Local == "p" {
				depth++
				para.Reset()
			}
		case xml.EndElement:
			if t.Name.Space == wordprocessingNS && t.Name.Local == "p" && depth > 0 {
				depth--
				if line := strings.TrimSpace(para.String()); line != "" {
					doc.WriteString(line)
					doc.WriteByte('\n')
				}
			}
		case xml.CharData:
			if depth > 0 {
				chunk := strings.TrimSpace(string(t))
				if chunk != "" {
					if para.Len() > 0 {
						para.WriteByte(' ')
					}
					para.WriteString(chunk)
				}
			}
		}
	}

	return strings.TrimSpace(doc.String())
}
