// Package utils provides small helpers shared by the HTTP and service
// layers. They carry no domain knowledge.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 int, returning def when s is empty or
// not a valid integer. Surrounding whitespace is not trimmed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampWindow bounds an offset/limit pair: a negative skip becomes 0, a
// non-positive limit becomes def, and limit never exceeds max.
func ClampWindow(skip, limit, def, max int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return skip, limit
}

// ParseID parses a decimal resource identifier. Signs, blanks and values
// that do not fit a uint are rejected.
func ParseID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, strconv.IntSize)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}
