package jobs

import (
	"errors"
	"strings"
)

var (
	ErrNotFound            = errors.New("job not found")
	ErrNotReady            = errors.New("job result not ready")
	ErrQuotaExceeded       = errors.New("concurrent job limit reached")
	ErrDailyLimitReached   = errors.New("daily job limit reached")
	ErrNotAwaitingFeedback = errors.New("job is not awaiting feedback")
	ErrQueueFull           = errors.New("job queue is full")
	ErrNoArtifact          = errors.New("job has no rendered document")
)

const (
	ErrorCodeValidation   = "VALIDATION_ERROR"
	ErrorCodeQuota        = "CONCURRENT_LIMIT_REACHED"
	ErrorCodeDailyLimit   = "DAILY_LIMIT_REACHED"
	ErrorCodeNotReady     = "RESULT_NOT_READY"
	ErrorCodeNotAwaiting  = "NOT_AWAITING_FEEDBACK"
	ErrorCodeQueueFull    = "QUEUE_FULL"
	ErrorCodeLLMTimeout   = "LLM_TIMEOUT"
	ErrorCodeLLMBadOutput = "LLM_SCHEMA_MISMATCH"
	ErrorCodeStorage      = "STORAGE_ERROR"
	ErrorCodeInternal     = "INTERNAL_ERROR"
)

// FailureCode classifies a failed job by the stage it died in, so clients
// can distinguish LLM trouble from storage trouble without parsing messages.
func FailureCode(job ResumeJob) string {
	switch job.ErrorStage {
	case "queue":
		return ErrorCodeQueueFull
	case "store":
		return ErrorCodeStorage
	case "analyze", "summary", "skills", "experience":
		if strings.Contains(job.ErrorMessage, "deadline exceeded") {
			return ErrorCodeLLMTimeout
		}
		return ErrorCodeLLMBadOutput
	default:
		return ErrorCodeInternal
	}
}
