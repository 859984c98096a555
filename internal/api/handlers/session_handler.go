package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/b-max/backend/internal/session"
)

type SessionHandler struct {
	sessions *session.Store
}

func NewSessionHandler(sessions *session.Store) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// GetSession serves /session/:user_id and /session-info/:user_id. A missing
// session is an error object in a 200 body, matching the existing clients.
func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	userID := c.Params("user_id")

	h.sessions.EvictExpired(time.Now())

	sess, ok := h.sessions.Get(userID)
	if !ok {
		return c.JSON(fiber.Map{
			"error":   "session not found",
			"user_id": userID,
		})
	}

	sess.Lock()
	defer sess.Unlock()

	return c.JSON(fiber.Map{
		"user_id":       sess.UserID,
		"username":      sess.Profile.FirstName,
		"message_count": sess.MessageCount(),
		"total_turns":   sess.TotalTurns(),
		"created_at":    sess.CreatedAt().Format(time.RFC3339),
		"last_active":   sess.LastActive().Format(time.RFC3339),
	})
}

func (h *SessionHandler) DeleteSession(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	deleted := h.sessions.Evict(userID)
	return c.JSON(fiber.Map{
		"user_id": userID,
		"deleted": deleted,
	})
}
