package util

import "strings"

// SanitizePostgresText drops invalid UTF-8 and NUL bytes, which Postgres
// text columns reject.
func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// NormalizeName trims value and collapses inner whitespace runs to a single
// space. Extracted entity names are keyed by their normalized form.
func NormalizeName(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
