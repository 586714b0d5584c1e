package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password registration accepts.
const MinPasswordLength = 9

// SpecialCharacters are the symbols that satisfy the special-character rule.
const SpecialCharacters = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// Password policy messages, in the order ValidatePassword reports them.
const (
	MsgPasswordTooShort     = "Password must be at least 9 characters long"
	MsgPasswordNoUppercase  = "Password must contain at least 1 uppercase letter"
	MsgPasswordNoLowercase  = "Password must contain at least 1 lowercase letter"
	MsgPasswordNoDigit      = "Password must contain at least 1 number"
	MsgPasswordNoSpecial    = "Password must contain at least 1 special character"
	passwordViolationJoiner = ", "
)

// ValidatePassword returns every policy rule the password breaks, in a fixed
// order. A nil result means the password is acceptable.
func ValidatePassword(password string) []string {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r <= unicode.MaxASCII && unicode.IsUpper(r):
			upper = true
		case r <= unicode.MaxASCII && unicode.IsLower(r):
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(SpecialCharacters, r):
			special = true
		}
	}

	var violations []string
	if utf8.RuneCountInString(password) < MinPasswordLength {
		violations = append(violations, MsgPasswordTooShort)
	}
	if !upper {
		violations = append(violations, MsgPasswordNoUppercase)
	}
	if !lower {
		violations = append(violations, MsgPasswordNoLowercase)
	}
	if !digit {
		violations = append(violations, MsgPasswordNoDigit)
	}
	if !special {
		violations = append(violations, MsgPasswordNoSpecial)
	}
	return violations
}

// JoinViolations renders ValidatePassword output as one user-facing message.
func JoinViolations(violations []string) string {
	return strings.Join(violations, passwordViolationJoiner)
}
