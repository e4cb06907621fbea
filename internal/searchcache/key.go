package searchcache

import (
	"sort"
	"strings"

	"resume-tailor/internal/shared/util"
)

// BuildKey derives the cache key for a query. Text fields are lowercased
// and whitespace-collapsed; sources are lowercased, deduplicated, and
// sorted so the key is insensitive to their order.
func BuildKey(q Query) string {
	parts := []string{
		normalizeText(q.Title),
		normalizeText(q.Location),
		normalizeText(q.DatePosted),
		strings.Join(normalizeSources(q.Sources), ","),
	}
	return util.HashKey(strings.Join(parts, "|"))
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func normalizeSources(sources []string) []string {
	seen := make(map[string]bool, len(sources))
	out := make([]string, 0, len(sources))
	for _, src := range sources {
		normalized := normalizeText(src)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	sort.Strings(out)
	return out
}
