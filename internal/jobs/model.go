package jobs

import (
	"errors"
	"strings"
	"time"

	"resume-tailor/internal/render"
	"resume-tailor/internal/resume"
)

// Job statuses. A job moves pending -> processing -> awaiting_feedback ->
// processing -> completed, or ends in failed at any point after pending.
const (
	StatusPending          = "pending"
	StatusProcessing       = "processing"
	StatusAwaitingFeedback = "awaiting_feedback"
	StatusCompleted        = "completed"
	StatusFailed           = "failed"
)

// Mode defines the supported generation modes.
type Mode string

const (
	// ModeCompleteFromJD regenerates summary, skills, and experience from
	// the job description.
	ModeCompleteFromJD Mode = "complete_jd"
	// ModeEditExisting keeps summary and skills as submitted and only
	// rewrites experience bullets.
	ModeEditExisting Mode = "resume_jd"
)

// ParseMode normalizes and validates a mode string.
func ParseMode(raw string) (Mode, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return "", errors.New("mode is required")
	}
	switch normalized {
	case string(ModeCompleteFromJD):
		return ModeCompleteFromJD, nil
	case string(ModeEditExisting):
		return ModeEditExisting, nil
	default:
		return "", errors.New("mode must be complete_jd or resume_jd")
	}
}

// JDHints holds the keywords extracted from a job description. They are
// surfaced to the user while the job is awaiting feedback and drive the
// generation stages afterwards.
type JDHints struct {
	TechnicalKeywords []string `json:"technical_keywords"`
	SoftSkills        []string `json:"soft_skills"`
	Phrases           []string `json:"phrases"`
}

// IsZero reports whether no hint category has entries.
func (h JDHints) IsZero() bool {
	return len(h.TechnicalKeywords) == 0 && len(h.SoftSkills) == 0 && len(h.Phrases) == 0
}

// ResumeJob represents one resume tailoring request.
type ResumeJob struct {
	RequestID      string         `json:"request_id"`
	UserID         string         `json:"-"`
	Mode           Mode           `json:"mode"`
	Status         string         `json:"status"`
	Progress       int            `json:"progress"`
	JobDescription string         `json:"-"`
	Company        string         `json:"company,omitempty"`
	JobTitle       string         `json:"job_title,omitempty"`
	SourceResume   resume.Resume  `json:"-"`
	Result         *resume.Resume `json:"result,omitempty"`
	Hints          *JDHints       `json:"hints,omitempty"`
	RenderFormat   render.Format  `json:"render_format"`
	ArtifactKey    string         `json:"-"`
	ErrorStage     string         `json:"error_stage,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	FeedbackAt     *time.Time     `json:"feedback_submitted_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

// Active reports whether the job holds a concurrency slot.
func (j ResumeJob) Active() bool {
	switch j.Status {
	case StatusPending, StatusProcessing, StatusAwaitingFeedback:
		return true
	default:
		return false
	}
}
