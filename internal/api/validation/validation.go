package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	// E.164-ish: optional leading +, digits with common separators
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 ()\-.]{5,22}$`)

	codeRegex = regexp.MustCompile(`^[0-9]{6}$`)
)

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// IsValidUUID checks if the string is a valid UUID format
func IsValidUUID(id string) bool {
	return uuidRegex.MatchString(id)
}

// IsValidPhone accepts international numbers with optional separators.
func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(phone)
}

// IsValidCode checks a six digit verification or reset code.
func IsValidCode(code string) bool {
	return codeRegex.MatchString(code)
}

const minPasswordLen = 6

// IsValidPassword only enforces length. Account passwords have no
// composition rules.
func IsValidPassword(password string) (bool, string) {
	if len(password) < minPasswordLen {
		return false, "Password must be at least 6 characters"
	}
	if len(password) > 72 {
		return false, "Password must be at most 72 characters"
	}
	return true, ""
}

// SanitizeString removes potentially dangerous characters for display
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// TruncateString truncates a string to maxLen runes
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
