package pipeline

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"resume-tailor/internal/llm"
	"resume-tailor/internal/shared/telemetry"
)

const llmRetryBaseDelay = 300 * time.Millisecond

// retryingLLM retries a completion once on transient transport failures.
type retryingLLM struct {
	base      llm.Client
	requestID string
}

func newRetryingLLM(base llm.Client, requestID string) llm.Client {
	return retryingLLM{base: base, requestID: requestID}
}

func (r retryingLLM) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := r.base.Complete(ctx, prompt)
	if err == nil || !shouldRetryLLM(err) {
		return resp, err
	}

	telemetry.Warn("llm.retry", map[string]any{
		"request_id": r.requestID,
		"error":      err.Error(),
	})
	select {
	case <-time.After(llmRetryBaseDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return r.base.Complete(ctx, prompt)
}

func shouldRetryLLM(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "rate_limit") || strings.Contains(msg, "http status 429") {
		return true
	}
	if strings.Contains(msg, "timeout") && (strings.Contains(msg, "openai") || strings.Contains(msg, "llm") || strings.Contains(msg, "client.timeout")) {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}
