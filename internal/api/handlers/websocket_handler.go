package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/b-max/backend/internal/chat"
	"github.com/b-max/backend/pkg/logger"
)

// WebSocketHandler is the streaming variant of /chat: deltas are forwarded
// as they arrive from the completion API, and the assembled reply lands in
// session history exactly as in the REST path.
type WebSocketHandler struct {
	service *chat.Service
}

func NewWebSocketHandler(service *chat.Service) *WebSocketHandler {
	return &WebSocketHandler{service: service}
}

type wsRequest struct {
	Type   string `json:"type"`
	Prompt string `json:"prompt"`
	UserID string `json:"user_id"`
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")
	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg wsRequest
		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			return
		}

		if msg.Type != "chat" {
			continue
		}

		msg.Prompt = strings.TrimSpace(msg.Prompt)
		if msg.Prompt == "" {
			h.send(c, map[string]any{"type": "error", "error": "Prompt is required"})
			continue
		}
		if strings.TrimSpace(msg.UserID) == "" {
			msg.UserID = defaultUserID
		}

		result, err := h.service.ChatStream(context.Background(), msg.UserID, msg.Prompt, func(delta string) {
			h.send(c, map[string]any{"type": "delta", "content": delta})
		})
		if err != nil {
			if errors.Is(err, chat.ErrCompletionUnavailable) {
				h.send(c, map[string]any{"type": "error", "error": "Chat is unavailable: completion API not configured"})
				continue
			}
			logger.Error("WebSocket chat turn failed", zap.Error(err))
			h.send(c, map[string]any{"type": "error", "error": "Failed to process chat request"})
			continue
		}

		h.send(c, map[string]any{
			"type":           "done",
			"response":       result.Response,
			"user_id":        result.UserID,
			"username":       result.Username,
			"timestamp":      result.Timestamp.Format(time.RFC3339),
			"total_messages": result.TotalMessages,
		})
	}
}

func (h *WebSocketHandler) send(c *websocket.Conn, payload map[string]any) {
	if err := c.WriteJSON(payload); err != nil {
		logger.Debug("WebSocket write failed", zap.Error(err))
	}
}
