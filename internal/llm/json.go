package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CompleteJSON sends a deterministic (temperature 0) chat completion and
// unmarshals the first JSON object found in the reply into target.
// Models frequently wrap JSON in prose or markdown fences, so the raw reply
// is scanned for a balanced top-level object rather than parsed directly.
func (c *Client) CompleteJSON(ctx context.Context, messages []Message, target any) error {
	reply, err := c.ChatWithMessages(ctx, messages, ChatParams{Temperature: 0})
	if err != nil {
		return fmt.Errorf("failed to get completion: %w", err)
	}

	raw, err := ExtractJSONObject(reply)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("failed to parse completion JSON: %w", err)
	}
	return nil
}

// ExtractJSONObject returns the first balanced top-level JSON object in text.
// String literals are respected so braces inside values do not end the scan.
func ExtractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in completion")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("unbalanced JSON object in completion")
}
