package security

import (
	"crypto/rand"
	"fmt"
	"regexp"
)

// CodeLength is the number of digits in a verification code.
const CodeLength = 6

var codePattern = regexp.MustCompile(`^\d{6}$`)

// GenerateNumericCode returns a random numeric string of the given length.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	digits := make([]byte, length)
	for i, b := range buf {
		digits[i] = '0' + (b % 10)
	}

	return string(digits), nil
}

// IsWellFormedCode reports whether the value looks like an issued code.
// Malformed input is rejected before touching the store.
func IsWellFormedCode(code string) bool {
	return codePattern.MatchString(code)
}
