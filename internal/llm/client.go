package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/b-max/backend/internal/metrics"
	"github.com/b-max/backend/internal/session"
	"github.com/b-max/backend/pkg/circuitbreaker"
	"github.com/b-max/backend/pkg/config"
	"github.com/b-max/backend/pkg/logger"
	"github.com/b-max/backend/pkg/retry"
)

var ErrUnavailable = errors.New("completion API not configured")

// Client wraps the OpenAI-compatible completion endpoint (the hosted Ollama
// API in production). A missing API key produces a client that reports
// unavailable instead of failing startup; the chat surface degrades to 503.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewClient(cfg config.LLMConfig) *Client {
	c := &Client{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
	}
	if c.timeout == 0 {
		c.timeout = 60 * time.Second
	}

	if cfg.APIKey == "" {
		logger.Warn("Completion API key not set, chat disabled")
		return c
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = cfg.BaseURL
	}
	c.api = openai.NewClientWithConfig(apiConfig)

	c.cb = circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})
	c.retryConfig = retry.DefaultConfig()
	c.retryConfig.InitialDelay = 500 * time.Millisecond
	c.retryConfig.MaxDelay = 5 * time.Second
	c.retryConfig.Logger = logger.GetLogger()

	logger.Info("Completion client initialized",
		zap.String("base_url", apiConfig.BaseURL),
		zap.String("model", cfg.Model),
	)
	return c
}

func (c *Client) Available() bool {
	return c != nil && c.api != nil
}

// Complete sends the ordered message window and returns the reply text.
func (c *Client) Complete(ctx context.Context, messages []session.Message) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var content string
	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       c.model,
				Messages:    toChatMessages(messages),
				Temperature: c.temperature,
				MaxTokens:   c.maxTokens,
			})
			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return errors.New("completion returned no choices")
			}

			metrics.CompletionTokens.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
			metrics.CompletionTokens.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

			content = resp.Choices[0].Message.Content
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// Stream sends the window in streaming mode, forwarding each delta to
// onDelta, and returns the assembled final text.
func (c *Client) Stream(ctx context.Context, messages []session.Message, onDelta func(string)) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var content string
	err := c.cb.Execute(ctx, func() error {
		stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    toChatMessages(messages),
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
			Stream:      true,
		})
		if err != nil {
			return fmt.Errorf("failed to open completion stream: %w", err)
		}
		defer stream.Close()

		var assembled []byte
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("completion stream failed: %w", err)
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			assembled = append(assembled, delta...)
			if onDelta != nil {
				onDelta(delta)
			}
		}

		content = string(assembled)
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func toChatMessages(messages []session.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
