package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

// Config contains LLM client configuration
type Config struct {
	APIKeys []string
	Model   string
	Timeout time.Duration
}

// Client calls the Gemini API for note synthesis, polishing and study
// artifact generation. Multiple API keys are rotated on rate-limit errors.
type Client struct {
	apiKeys []string
	model   string
	timeout time.Duration
	logger  *slog.Logger

	mu         sync.Mutex
	currentKey int
}

// NewClient creates an LLM client
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if len(cfg.APIKeys) == 0 {
		return nil, fmt.Errorf("at least one API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Client{
		apiKeys: cfg.APIKeys,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// generateJSON sends a prompt expecting a JSON response and unmarshals it
// into out. Rotates API keys on 429 / quota errors.
func (c *Client) generateJSON(ctx context.Context, prompt string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	attempts := len(c.apiKeys)
	var lastErr error

	for range attempts {
		key := c.nextKey(false)

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			lastErr = fmt.Errorf("failed to create client: %w", err)
			c.nextKey(true)
			continue
		}

		result, err := client.Models.GenerateContent(ctx, c.model, genai.Text(prompt),
			&genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
		if err != nil {
			if isRateLimited(err) {
				c.logger.Warn("LLM key rate limited, rotating", slog.String("model", c.model))
				c.nextKey(true)
				lastErr = err
				continue
			}
			return fmt.Errorf("failed to generate content: %w", err)
		}

		text := extractText(result)
		if text == "" {
			return fmt.Errorf("empty response from model")
		}

		if err := json.Unmarshal([]byte(stripFences(text)), out); err != nil {
			return fmt.Errorf("failed to parse model response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("all API keys exhausted: %w", lastErr)
}

// nextKey returns the current key, advancing first when rotate is set
func (c *Client) nextKey(rotate bool) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rotate {
		c.currentKey = (c.currentKey + 1) % len(c.apiKeys)
	}
	return c.apiKeys[c.currentKey]
}

func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func extractText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	return text
}

// stripFences removes a surrounding markdown code fence if the model wrapped
// its JSON in one
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
