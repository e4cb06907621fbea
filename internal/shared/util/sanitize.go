package util

import (
	"errors"
	"strings"
)

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// DownloadFileName builds an attachment filename from name parts, replacing
// spaces and separators so the result is header-safe.
func DownloadFileName(parts ...string) string {
	var kept []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = strings.ReplaceAll(p, " ", "_")
		p = strings.ReplaceAll(p, "/", "_")
		p = strings.ReplaceAll(p, "\\", "_")
		p = strings.ReplaceAll(p, "\"", "")
		kept = append(kept, p)
	}
	return strings.Join(kept, "_")
}
