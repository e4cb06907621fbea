package templates

import (
	"errors"
	"time"

	"resume-tailor/internal/resume"
)

var (
	// ErrNotFound is returned when a user has no saved template.
	ErrNotFound = errors.New("template not found")
	// ErrInvalidResume wraps validation failures on a submitted template.
	ErrInvalidResume = errors.New("invalid resume")
)

// Template is a user's saved base resume. Each user keeps exactly one;
// saving replaces the previous version.
type Template struct {
	UserID    string        `json:"-"`
	Resume    resume.Resume `json:"resume"`
	UpdatedAt time.Time     `json:"updated_at"`
}
