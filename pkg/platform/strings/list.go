// Package strings parses list-valued query parameters and settings.
package strings

import (
	"strings"
)

// SplitList splits a comma-separated value into trimmed, non-empty elements,
// dropping later elements that equal an earlier one ignoring case. Order of
// first occurrence is kept.
//
//	SplitList(" active, Pending,,ACTIVE ") // []string{"active", "Pending"}
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return DedupeFold(strings.Split(s, ","))
}

// DedupeFold trims each value and removes empties and case-insensitive duplicates.
func DedupeFold(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
