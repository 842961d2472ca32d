package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"ledgerline/internal/document"
	"ledgerline/internal/models"
	"ledgerline/internal/services"
)

// ExportHandler turns session snapshots into downloadable artifacts
type ExportHandler struct {
	docs  *document.Service
	store *services.SessionStore
}

// NewExportHandler creates a new export handler
func NewExportHandler(docs *document.Service, store *services.SessionStore) *ExportHandler {
	return &ExportHandler{docs: docs, store: store}
}

// ExportRequest is the export API request body
type ExportRequest struct {
	SessionID string `json:"sessionId"`
	Format    string `json:"format"`
}

// Export handles POST /api/export
func (h *ExportHandler) Export(c *fiber.Ctx) error {
	var req ExportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "sessionId is required",
		})
	}
	if req.Format == "" {
		req.Format = document.FormatJSON
	}

	snapshot := h.store.Snapshot(req.SessionID)
	if snapshot == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}

	doc, err := h.docs.Export(snapshot, req.Format)
	if err != nil {
		log.Printf("❌ [EXPORT] %s export for session %s failed: %v", req.Format, req.SessionID, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	h.store.RecordArtifact(req.SessionID, models.AnalysisRecord{
		ID:        doc.ID,
		Type:      "export_" + req.Format,
		Result:    doc.Filename,
		Timestamp: time.Now(),
	})

	return c.JSON(doc)
}
