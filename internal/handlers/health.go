package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"ledgerline/internal/services"
)

// HealthHandler reports liveness and basic session stats
type HealthHandler struct {
	store *services.SessionStore
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *services.SessionStore) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"sessions":  h.store.Count(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
