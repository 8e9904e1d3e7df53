// Package strings provides string slice utilities.
package strings

import (
	"strings"
)

// DedupeBy keeps the first trimmed value for each distinct key(value) and
// drops values whose key is empty. Order is preserved.
//
// Example:
//
//	DedupeBy([]string{"KA", " ka ", "Karnataka"}, strings.ToLower)
//	// Returns: []string{"KA", "Karnataka"}
func DedupeBy(values []string, key func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		k := key(trimmed)
		if trimmed == "" || k == "" {
			continue
		}
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}
