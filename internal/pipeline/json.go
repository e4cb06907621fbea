package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"resume-tailor/internal/llm"
)

// completeJSON runs a prompt and decodes the strict-JSON response into out.
// A response the model wraps in prose or code fences gets one reformat pass
// through the model before the decode error is surfaced.
func completeJSON(ctx context.Context, client llm.Client, prompt string, out any) error {
	raw, err := client.Complete(ctx, prompt)
	if err != nil {
		return err
	}

	if err := decodeJSON(raw, out); err == nil {
		return nil
	}

	reformatted, err := client.Complete(ctx, llm.ReformatJSONPrompt(raw))
	if err != nil {
		return fmt.Errorf("reformat response: %w", err)
	}
	if err := decodeJSON(reformatted, out); err != nil {
		return fmt.Errorf("decode llm response: %w", err)
	}
	return nil
}

func marshalPromptJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal prompt input: %w", err)
	}
	return string(b), nil
}

// decodeJSON tolerates code fences and leading prose around the JSON body.
func decodeJSON(raw string, out any) error {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	if err := json.Unmarshal([]byte(trimmed), out); err == nil {
		return nil
	}

	start := strings.IndexAny(trimmed, "{[")
	if start < 0 {
		return fmt.Errorf("no json object in response")
	}
	end := strings.LastIndexAny(trimmed, "}]")
	if end <= start {
		return fmt.Errorf("unterminated json in response")
	}
	return json.Unmarshal([]byte(trimmed[start:end+1]), out)
}
