package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"ledgerline/internal/models"
	"ledgerline/internal/services"
	"ledgerline/internal/utils"
)

const (
	maxPDFUpload  = 10 * 1024 * 1024
	maxDocUpload  = 10 * 1024 * 1024
	maxTextUpload = 2 * 1024 * 1024
)

// UploadHandler accepts requirement documents and hands their extracted text
// to the session's context.
type UploadHandler struct {
	files *services.FileCache
	store *services.SessionStore
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(files *services.FileCache, store *services.SessionStore) *UploadHandler {
	return &UploadHandler{files: files, store: store}
}

// UploadResponse is the upload API response
type UploadResponse struct {
	FileID    string `json:"file_id"`
	SessionID string `json:"session_id"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	Size      int64  `json:"size"`
	Pages     int    `json:"pages"`
	Words     int    `json:"words"`
	Preview   string `json:"preview"`
	Truncated bool   `json:"truncated"`
}

// Upload handles POST /api/upload (multipart, field "file", optional field
// "session_id"). Supported types: PDF, DOCX, and plain text family (txt, md,
// csv, json).
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file provided",
		})
	}

	sessionID := c.FormValue("session_id")
	if sessionID == "" {
		if id, ok := c.Locals("session_id").(string); ok {
			sessionID = id
		}
	}
	if sessionID == "" {
		sessionID = services.NewSessionID()
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not read uploaded file",
		})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not read uploaded file",
		})
	}

	mimeType := detectMimeType(data, fileHeader.Filename)

	var (
		extraction *utils.Extraction
		limit      int64
	)
	switch mimeType {
	case "application/pdf":
		limit = maxPDFUpload
		if int64(len(data)) > limit {
			return uploadTooLarge(c, limit)
		}
		extraction, err = utils.ExtractPDF(data)
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		limit = maxDocUpload
		if int64(len(data)) > limit {
			return uploadTooLarge(c, limit)
		}
		extraction, err = utils.ExtractDOCX(data)
	case "text/plain", "text/markdown", "text/csv", "application/json":
		limit = maxTextUpload
		if int64(len(data)) > limit {
			return uploadTooLarge(c, limit)
		}
		extraction, err = utils.ExtractPlainText(data)
	default:
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
			"error": fmt.Sprintf("Unsupported file type %s. Supported: PDF, DOCX, TXT, MD, CSV, JSON.", mimeType),
		})
	}
	if err != nil {
		log.Printf("❌ [UPLOAD] Extraction failed for %s: %v", fileHeader.Filename, err)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Could not extract text from the document",
		})
	}

	cached := h.files.Store(sessionID, fileHeader.Filename, mimeType, fileHeader.Size, extraction.Text, extraction.Truncated)

	h.store.RecordAnalysis(sessionID, models.AnalysisRecord{
		ID:        cached.ID,
		Type:      "document_upload",
		Result:    fmt.Sprintf("%s (%d words)", fileHeader.Filename, extraction.Words),
		Timestamp: time.Now(),
	})

	log.Printf("📎 [UPLOAD] %s (%s, %d bytes) for session %s", fileHeader.Filename, mimeType, fileHeader.Size, sessionID)

	return c.JSON(UploadResponse{
		FileID:    cached.ID,
		SessionID: sessionID,
		Filename:  fileHeader.Filename,
		MimeType:  mimeType,
		Size:      fileHeader.Size,
		Pages:     extraction.Pages,
		Words:     extraction.Words,
		Preview:   utils.Preview(extraction.Text, 500),
		Truncated: extraction.Truncated,
	})
}

func uploadTooLarge(c *fiber.Ctx, limit int64) error {
	return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
		"error": fmt.Sprintf("File exceeds the %dMB limit", limit/(1024*1024)),
	})
}

// detectMimeType sniffs content first, then falls back to the extension for
// text formats http.DetectContentType cannot distinguish.
func detectMimeType(data []byte, filename string) string {
	sniffed := http.DetectContentType(data)
	if idx := strings.Index(sniffed, ";"); idx > 0 {
		sniffed = sniffed[:idx]
	}

	switch sniffed {
	case "application/pdf":
		return sniffed
	case "application/zip":
		// DOCX is a ZIP container; trust the extension
		if strings.EqualFold(filepath.Ext(filename), ".docx") {
			return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		}
		return sniffed
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain"
	}

	if strings.HasPrefix(sniffed, "text/") {
		return "text/plain"
	}
	return sniffed
}
