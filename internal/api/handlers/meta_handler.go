package handlers

import (
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/b-max/backend/internal/chat"
	"github.com/b-max/backend/internal/dynamo"
	"github.com/b-max/backend/internal/session"
	"github.com/b-max/backend/internal/tender"
	"github.com/b-max/backend/pkg/logger"
)

// MetaHandler serves the liveness, health and lookup endpoints around the
// chat surface.
type MetaHandler struct {
	cache     *tender.Cache
	db        *dynamo.Client
	completer chat.Completer
	sessions  *session.Store
}

func NewMetaHandler(cache *tender.Cache, db *dynamo.Client, completer chat.Completer, sessions *session.Store) *MetaHandler {
	return &MetaHandler{cache: cache, db: db, completer: completer, sessions: sessions}
}

func (h *MetaHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":   "B-Max AI Assistant API is live",
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *MetaHandler) Health(c *fiber.Ctx) error {
	h.sessions.EvictExpired(time.Now())

	dbStatus := "disconnected"
	if h.db.Connected() {
		dbStatus = "connected"
	}
	llmStatus := "disabled"
	if h.completer.Available() {
		llmStatus = "connected"
	}

	return c.JSON(fiber.Map{
		"status":          "ok",
		"service":         "B-Max Chatbot",
		"dynamodb":        dbStatus,
		"tenders":         len(h.cache.Snapshot(c.Context())),
		"llm":             llmStatus,
		"active_sessions": h.sessions.Count(),
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}

// GetCategories prefers a live projection scan so the list reflects the
// table even when the snapshot is mid-TTL; scan failure degrades to the
// snapshot's categories.
func (h *MetaHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.db.ScanCategories(c.Context())
	if err != nil {
		logger.Warn("Category scan failed, serving snapshot categories", zap.Error(err))
		categories = tender.Categories(h.cache.Snapshot(c.Context()))
	}
	sort.Strings(categories)
	return c.JSON(fiber.Map{"categories": categories})
}

func (h *MetaHandler) GetAgencies(c *fiber.Ctx) error {
	agencies := tender.Agencies(h.cache.Snapshot(c.Context()))
	return c.JSON(fiber.Map{"agencies": agencies})
}

// GetTendersByCategory lists snapshot records whose category contains the
// path segment, case-insensitively.
func (h *MetaHandler) GetTendersByCategory(c *fiber.Ctx) error {
	category := strings.ToLower(strings.TrimSpace(c.Params("category")))
	limit := c.QueryInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}

	var results []fiber.Map
	for _, record := range h.cache.Snapshot(c.Context()) {
		if !strings.Contains(strings.ToLower(record.Category), category) {
			continue
		}
		results = append(results, renderTender(record))
		if len(results) >= limit {
			break
		}
	}

	if len(results) == 0 {
		return c.JSON(fiber.Map{
			"message": "No tenders found for '" + c.Params("category") + "'",
		})
	}
	return c.JSON(fiber.Map{
		"category": c.Params("category"),
		"results":  results,
	})
}

// renderTender exposes only user-facing fields. The document link comes
// exclusively from the primary document URL.
func renderTender(t tender.Tender) fiber.Map {
	link := strings.TrimSpace(t.DocumentURL)
	out := fiber.Map{
		"title":        t.Title,
		"reference":    t.Reference,
		"category":     t.Category,
		"agency":       t.Agency,
		"status":       t.Status,
		"closing_date": t.Closing,
	}
	if link != "" {
		out["document_link"] = link
	} else {
		out["document_link"] = nil
	}
	return out
}
