package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zqshi/thinkcraft-auth/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves the error against the typed protocol
// errors first, then the provided sentinel cases, then the fallback.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	var rateLimited *usecase.RateLimitedError
	if errors.As(err, &rateLimited) {
		body := NewErrorResponse(c, "too many requests, slow down")
		body.RetryAfter = int64(rateLimited.RetryAfter.Seconds())
		c.JSON(http.StatusTooManyRequests, body)
		return
	}

	var invalidCode *usecase.InvalidCodeError
	if errors.As(err, &invalidCode) {
		body := NewErrorResponse(c, "invalid verification code")
		body.Remaining = invalidCode.Remaining
		c.JSON(http.StatusBadRequest, body)
		return
	}

	var locked *usecase.AccountLockedError
	if errors.As(err, &locked) {
		body := NewErrorResponse(c, "account temporarily locked")
		body.RetryAfter = int64(locked.RetryAfter.Seconds())
		c.JSON(http.StatusLocked, body)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

// verificationErrorCases are shared by every flow that consumes codes.
var verificationErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidPhoneFormat, Status: http.StatusBadRequest, Message: "invalid phone number format"},
	{Err: usecase.ErrUnknownPurpose, Status: http.StatusBadRequest, Message: "unknown verification purpose"},
	{Err: usecase.ErrCodeMalformed, Status: http.StatusBadRequest, Message: "verification code must be 6 digits"},
	{Err: usecase.ErrCodeExpiredOrMissing, Status: http.StatusBadRequest, Message: "verification code expired or was never sent"},
	{Err: usecase.ErrTooManyFailures, Status: http.StatusBadRequest, Message: "too many failed attempts, request a new code"},
	{Err: usecase.ErrDailyLimitExceeded, Status: http.StatusTooManyRequests, Message: "daily code limit reached, try again tomorrow"},
	{Err: usecase.ErrDeliveryFailed, Status: http.StatusBadGateway, Message: "could not deliver the verification code"},
}
