package resume

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Resume represents the canonical resume payload exchanged with clients,
// stored alongside jobs, and rendered into documents.
type Resume struct {
	Name           string          `json:"name"`
	Contact        string          `json:"contact"`
	Summary        string          `json:"summary"`
	Skills         Skills          `json:"technical_skills"`
	Experience     []Role          `json:"experience"`
	Projects       []Project       `json:"projects,omitempty"`
	Education      []Education     `json:"education"`
	Certifications []Certification `json:"certifications,omitempty"`
}

// Validate enforces required fields for a resume submitted by a client.
func (r Resume) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if len(r.Experience) == 0 {
		return errors.New("at least one experience entry is required")
	}
	for i, role := range r.Experience {
		if strings.TrimSpace(role.Company) == "" {
			return fmt.Errorf("experience[%d].company is required", i)
		}
	}
	return nil
}

// Role represents a work history entry.
type Role struct {
	Company string   `json:"company"`
	Title   string   `json:"title"`
	Dates   string   `json:"dates"`
	Bullets []string `json:"bullets"`
}

// Project represents a notable project entry.
type Project struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets,omitempty"`
}

// Education represents an education entry.
type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
}

// Certification represents a certification entry.
type Certification struct {
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
	Year         string `json:"year,omitempty"`
}

// Skills groups skill items by category. Model output is inconsistent about
// the value shape, so unmarshalling accepts a list of strings, a single
// comma-joined string, or a nested category map which is flattened into
// "Parent - Child" categories.
type Skills map[string][]string

// UnmarshalJSON normalizes the accepted value shapes into []string per category.
func (s *Skills) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Skills, len(raw))
	for category, value := range raw {
		if err := decodeSkillValue(out, category, value); err != nil {
			return fmt.Errorf("skills[%q]: %w", category, err)
		}
	}
	*s = out
	return nil
}

func decodeSkillValue(out Skills, category string, value json.RawMessage) error {
	var items []string
	if err := json.Unmarshal(value, &items); err == nil {
		out[category] = trimAll(items)
		return nil
	}

	var joined string
	if err := json.Unmarshal(value, &joined); err == nil {
		out[category] = splitCommaList(joined)
		return nil
	}

	var nested map[string]json.RawMessage
	if err := json.Unmarshal(value, &nested); err == nil {
		for sub, subValue := range nested {
			if err := decodeSkillValue(out, category+" - "+sub, subValue); err != nil {
				return err
			}
		}
		return nil
	}

	return errors.New("expected string, list, or nested map")
}

// Categories returns category names in a stable order: the conventional
// resume sections first, then anything else alphabetically.
func (s Skills) Categories() []string {
	preferred := []string{
		"Programming Languages", "Languages", "Frameworks", "Databases",
		"Cloud", "Cloud & DevOps", "Tools",
	}
	seen := make(map[string]bool, len(s))
	var ordered []string
	for _, name := range preferred {
		if _, ok := s[name]; ok {
			ordered = append(ordered, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range s {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(ordered, rest...)
}

// Equal reports whether two skill sets contain the same items per category,
// ignoring item order, case, and surrounding whitespace.
func (s Skills) Equal(other Skills) bool {
	if len(s) != len(other) {
		return false
	}
	for category, items := range s {
		theirs, ok := other[category]
		if !ok || !sameItems(items, theirs) {
			return false
		}
	}
	return true
}

func sameItems(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, item := range a {
		counts[normalizeItem(item)]++
	}
	for _, item := range b {
		key := normalizeItem(item)
		counts[key]--
		if counts[key] < 0 {
			return false
		}
	}
	return true
}

func normalizeItem(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func splitCommaList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
