package library

import (
	"regexp"
	"strings"
)

// Pure syntax predicates. They carry no state and make no uniqueness or
// existence claims; the stores decide what to do with a false result.

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail reports whether s looks like an email address. Deliberately
// permissive: local@domain.tld with no whitespace.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidPhone accepts digits optionally grouped with spaces, hyphens,
// parentheses or a leading +. At least 7 digits are required.
func ValidPhone(s string) bool {
	digits := 0
	for _, r := range strings.TrimPrefix(s, "+") {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 7
}

// ValidISBN accepts 10- or 13-digit ISBNs, hyphens ignored.
func ValidISBN(s string) bool {
	s = strings.ReplaceAll(s, "-", "")
	if len(s) != 10 && len(s) != 13 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidGenre reports whether genre belongs to the given enumeration.
func ValidGenre(genre string, genres []string) bool {
	for _, g := range genres {
		if g == genre {
			return true
		}
	}
	return false
}
