package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizer = bluemonday.UGCPolicy()
	stripper  = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return strings.TrimSpace(sanitizer.Sanitize(input))
}

// SanitizePlain removes all markup, for short fields such as names.
func SanitizePlain(input string) string {
	return strings.TrimSpace(html.UnescapeString(stripper.Sanitize(input)))
}

// SanitizeList applies SanitizePlain to each entry and drops empty ones.
func SanitizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = SanitizePlain(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
