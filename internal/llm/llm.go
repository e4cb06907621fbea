package llm

import (
	"context"
	"errors"
)

// Client abstracts LLM providers behind a single prompt-completion call.
// Implementations must return the raw model output, which callers parse.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("LLM provider not configured")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	return "", ErrNotConfigured
}
