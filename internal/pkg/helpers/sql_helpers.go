package helpers

import "strings"

// NullIfEmpty returns nil for blank strings so optional text columns stay NULL
func NullIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// LikePattern escapes LIKE wildcards and wraps the term for a contains match
func LikePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(term)) + "%"
}
