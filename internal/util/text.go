package util

import "strings"

func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// HasBadWhitespace reports whether value contains a newline, carriage
// return or tab. Such values break the line based and pipe delimited
// export formats.
func HasBadWhitespace(value string) bool {
	return strings.ContainsAny(value, "\n\t\r")
}
