package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidPhoneFormat     = errors.New("invalid phone number format")
	ErrUnknownPurpose         = errors.New("unknown verification purpose")
	ErrCodeMalformed          = errors.New("verification code is malformed")
	ErrCodeExpiredOrMissing   = errors.New("verification code expired or was never sent")
	ErrTooManyFailures        = errors.New("too many failed verification attempts")
	ErrDailyLimitExceeded     = errors.New("daily verification code limit exceeded")
	ErrPhoneAlreadyRegistered = errors.New("phone number already registered")
	ErrPhoneAlreadyBound      = errors.New("phone number already bound to this account")
	ErrAccountNotFound        = errors.New("account not found")
	ErrAccountNotActive       = errors.New("account is not active")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrTokenExpired           = errors.New("token expired")
	ErrTokenInvalid           = errors.New("token invalid")
	ErrDeliveryFailed         = errors.New("verification code delivery failed")
)

// InvalidCodeError reports a wrong code and how many attempts remain before
// the code is invalidated.
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid verification code, %d attempts remaining", e.Remaining)
}

// RateLimitedError reports that a resend came too early.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("resend too frequent, retry after %s", e.RetryAfter)
}

// AccountLockedError reports a temporary lockout after repeated failures.
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account temporarily locked, retry after %s", e.RetryAfter)
}
