package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"ledgerline/internal/document"
)

// DownloadHandler serves generated export artifacts
type DownloadHandler struct {
	docs *document.Service
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(docs *document.Service) *DownloadHandler {
	return &DownloadHandler{docs: docs}
}

// Download handles GET /api/download/:id. Artifacts are single-purpose: the
// cleanup job deletes them a few minutes after the first download.
func (h *DownloadHandler) Download(c *fiber.Ctx) error {
	docID := c.Params("id")

	doc, ok := h.docs.Get(docID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found or expired",
		})
	}

	c.Set("Content-Type", doc.ContentType)
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.Filename))

	if err := c.SendFile(doc.FilePath); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document file is no longer available",
		})
	}

	h.docs.MarkDownloaded(docID)
	return nil
}
