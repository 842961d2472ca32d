package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"ledgerline/internal/services"
)

// SessionHandler exposes session history, summary and lifecycle operations
type SessionHandler struct {
	store *services.SessionStore
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(store *services.SessionStore) *SessionHandler {
	return &SessionHandler{store: store}
}

// History handles GET /api/sessions/:id/history. Unknown sessions return an
// empty list, not 404, so clients need no existence check before polling.
func (h *SessionHandler) History(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be a non-negative integer",
			})
		}
		limit = n
	}

	messages := h.store.History(sessionID, limit)
	return c.JSON(fiber.Map{
		"sessionId": sessionID,
		"messages":  messages,
		"count":     len(messages),
	})
}

// Summary handles GET /api/sessions/:id/summary
func (h *SessionHandler) Summary(c *fiber.Ctx) error {
	summary := h.store.Summary(c.Params("id"))
	if summary == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}
	return c.JSON(summary)
}

// Clear handles DELETE /api/sessions/:id. Idempotent.
func (h *SessionHandler) Clear(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	h.store.Clear(sessionID)
	return c.JSON(fiber.Map{
		"sessionId": sessionID,
		"cleared":   true,
	})
}

// ResolveIssue handles POST /api/sessions/:id/issues/:messageId/resolve
func (h *SessionHandler) ResolveIssue(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	messageID := c.Params("messageId")

	if !h.store.ResolveIssue(sessionID, messageID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":    "No open issue found for that message",
			"resolved": false,
		})
	}

	return c.JSON(fiber.Map{
		"sessionId": sessionID,
		"messageId": messageID,
		"resolved":  true,
	})
}
