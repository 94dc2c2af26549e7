package llm

import (
	"context"
	"fmt"
)

const polishPrompt = `You are an expert note editor. Rewrite the following lecture notes for
clarity, removing redundancy and improving flow. Preserve all citation
markers (e.g. [^t12]) exactly as they appear; do not remove or renumber
them. Keep the heading structure intact.

Respond with JSON matching exactly this schema:
{"notes":"string"}

Notes to polish:
%s`

type polishResponse struct {
	Notes string `json:"notes"`
}

// Polish rewrites merged notes for clarity while preserving citation markers
func (c *Client) Polish(ctx context.Context, notesMarkdown string) (string, error) {
	var resp polishResponse
	if err := c.generateJSON(ctx, fmt.Sprintf(polishPrompt, notesMarkdown), &resp); err != nil {
		return "", fmt.Errorf("polish failed: %w", err)
	}
	if resp.Notes == "" {
		return "", fmt.Errorf("polish returned empty notes")
	}
	return resp.Notes, nil
}
