package authproto

import (
	"strings"
	"unicode"
)

// SpecialChars is the fixed set of characters that satisfy the
// password policy's special-character requirement.
const SpecialChars = "!@#$%^&*()-_=+[]{}|;:,.<>?/~"

// IsValidEmail reports whether email has the minimal shape the
// protocol accepts: an '@' past the first position, followed by a '.'
// with at least one character in between. No attempt is made to track
// the full RFC grammar.
func IsValidEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at < 1 {
		return false
	}
	dot := strings.IndexByte(email[at+1:], '.')
	return dot >= 1
}

// IsValidPassword enforces the password policy: at least 10
// characters with at least one digit, one uppercase letter, one
// lowercase letter, and one character from SpecialChars.
func IsValidPassword(password string) bool {
	if len(password) < 10 {
		return false
	}
	var digit, upper, lower, special bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case strings.ContainsRune(SpecialChars, r):
			special = true
		}
	}
	return digit && upper && lower && special
}
