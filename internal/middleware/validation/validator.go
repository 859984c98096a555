package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var scriptPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=)`)

type Config struct {
	MaxPromptLength int
	Logger          *zap.Logger
}

// Middleware rejects oversized or script-laden chat prompts before they
// reach the pipeline. Prompts are forwarded verbatim to the completion API,
// so size is the main concern.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxPromptLength == 0 {
		cfg.MaxPromptLength = 4000
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost || !strings.HasPrefix(c.Path(), "/chat") {
			return c.Next()
		}

		contentType := c.Get("Content-Type")
		if contentType != "" && !strings.Contains(contentType, "application/json") {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Unsupported content type",
			})
		}

		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid JSON format",
			})
		}

		if len(req.Prompt) > cfg.MaxPromptLength {
			if cfg.Logger != nil {
				cfg.Logger.Warn("Prompt rejected for length", zap.Int("length", len(req.Prompt)))
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Prompt too long",
			})
		}

		if scriptPattern.MatchString(req.Prompt) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("Prompt rejected for markup injection")
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Prompt contains disallowed content",
			})
		}

		return c.Next()
	}
}
