package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SessionID extracts the optional X-Session-ID header into request locals so
// downstream handlers and the chat rate limiter can key on it. There is no
// authentication; session ids are unguessable capability tokens.
func SessionID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id := strings.TrimSpace(c.Get("X-Session-ID")); id != "" {
			c.Locals("session_id", id)
		}
		return c.Next()
	}
}
