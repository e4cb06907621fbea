package jobs

import "context"

type requestIDKey struct{}

// WithRequestID attaches an HTTP request ID to the context for logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the attached request ID, if any.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// carryRequestID copies the request ID from the HTTP context onto a worker
// context, so pipeline logs correlate with the request that enqueued the job.
func carryRequestID(httpCtx, workerCtx context.Context) context.Context {
	requestID := RequestIDFromContext(httpCtx)
	if requestID == "" {
		return workerCtx
	}
	return WithRequestID(workerCtx, requestID)
}
