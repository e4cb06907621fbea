package render

import (
	"fmt"
	"strings"
)

// Format selects the document layout used when rendering a resume.
type Format string

const (
	// FormatClassic is a single-column Times New Roman layout.
	FormatClassic Format = "classic"
	// FormatModern is a Calibri layout with colored section headings.
	FormatModern Format = "modern"
)

// ParseFormat validates a client-supplied format name, defaulting to classic.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(FormatClassic):
		return FormatClassic, nil
	case string(FormatModern):
		return FormatModern, nil
	default:
		return "", fmt.Errorf("unknown render format %q", raw)
	}
}
