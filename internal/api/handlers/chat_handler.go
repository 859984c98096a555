package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/b-max/backend/internal/chat"
	"github.com/b-max/backend/pkg/logger"
)

const defaultUserID = "guest"

type ChatHandler struct {
	service *chat.Service
}

func NewChatHandler(service *chat.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

type chatRequest struct {
	Prompt string `json:"prompt"`
	UserID string `json:"user_id"`
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse chat request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.Prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Prompt is required",
		})
	}
	if req.UserID == "" {
		req.UserID = defaultUserID
	}

	result, err := h.service.Chat(c.Context(), req.UserID, req.Prompt)
	if err != nil {
		if errors.Is(err, chat.ErrCompletionUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Chat is unavailable: completion API not configured",
			})
		}
		logger.Error("Chat pipeline failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process chat request",
		})
	}

	return c.JSON(fiber.Map{
		"response":       result.Response,
		"user_id":        result.UserID,
		"username":       result.Username,
		"timestamp":      result.Timestamp.Format(time.RFC3339),
		"session_active": result.SessionActive,
		"total_messages": result.TotalMessages,
	})
}
