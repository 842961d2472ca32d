package handlers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"ledgerline/internal/models"
	"ledgerline/internal/services"
)

// ChatHandler handles conversational requests
type ChatHandler struct {
	chat *services.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Chat handles POST /api/chat. Provider failures come back as 200 with
// metadata.error set; only malformed requests surface as HTTP errors.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}

	// Header session id applies when the body leaves it blank
	if req.SessionID == "" {
		if id, ok := c.Locals("session_id").(string); ok {
			req.SessionID = id
		}
	}

	resp, err := h.chat.Chat(c.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrMessageTooLong) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Message is too long",
			})
		}
		log.Printf("❌ [CHAT] Request failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Chat service is temporarily unavailable",
		})
	}

	return c.JSON(resp)
}
