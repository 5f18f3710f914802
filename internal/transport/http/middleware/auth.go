package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zqshi/thinkcraft-auth/internal/infra/security"
	"github.com/zqshi/thinkcraft-auth/internal/usecase"
)

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequireAuth validates the Authorization header and stores the caller
// identity on the gin context.
func RequireAuth(auth *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		token, ok := security.ExtractBearerToken(header)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		identity, err := auth.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			var locked *usecase.AccountLockedError
			switch {
			case errors.Is(err, usecase.ErrTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "access token expired"))
			case errors.Is(err, usecase.ErrTokenInvalid):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid access token"))
			case errors.Is(err, usecase.ErrAccountNotFound), errors.Is(err, usecase.ErrAccountNotActive):
				c.AbortWithStatusJSON(http.StatusForbidden,
					newErrorResponse(c, "account is not allowed to act"))
			case errors.As(err, &locked):
				c.AbortWithStatusJSON(http.StatusForbidden,
					newErrorResponse(c, "account temporarily locked"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		c.Set(AccountIDKey, identity.AccountID)
		c.Set(AccountPhoneKey, identity.Phone)

		c.Next()
	}
}

// GetAuthenticatedAccountID retrieves the account ID stored by RequireAuth.
func GetAuthenticatedAccountID(c *gin.Context) (string, bool) {
	value, exists := c.Get(AccountIDKey)
	if !exists {
		return "", false
	}
	if id, ok := value.(string); ok {
		return id, true
	}
	return "", false
}
