package common

import "strconv"

// AtoiDefault converts the provided string to an integer falling back to the default when parsing fails.
func AtoiDefault(value string, def int) int {
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

// ParseInt converts a URL parameter to an integer.
func ParseInt(value string) (int, error) {
	return strconv.Atoi(value)
}
