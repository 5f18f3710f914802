package domain

import (
	"errors"
	"regexp"
)

// ErrInvalidPhone indicates the value is not a valid mainland mobile number.
var ErrInvalidPhone = errors.New("invalid phone number format")

var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// Phone is a validated 11-digit mobile number.
type Phone string

// NewPhone validates the raw value and returns it as a Phone.
func NewPhone(raw string) (Phone, error) {
	if !phonePattern.MatchString(raw) {
		return "", ErrInvalidPhone
	}
	return Phone(raw), nil
}

// String returns the raw number. Never log this directly; use Masked.
func (p Phone) String() string {
	return string(p)
}

// Masked returns the number with the middle digits hidden, e.g. 138****8000.
func (p Phone) Masked() string {
	s := string(p)
	if len(s) != 11 {
		return "****"
	}
	return s[:3] + "****" + s[7:]
}
