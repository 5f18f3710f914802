package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zqshi/thinkcraft-auth/internal/core/domain"
	"github.com/zqshi/thinkcraft-auth/internal/core/port"
	"github.com/zqshi/thinkcraft-auth/internal/transport/http/middleware"
)

// ErrorResponse is the JSON error body returned by every handler.
type ErrorResponse struct {
	Error      string `json:"error"`
	TraceID    string `json:"trace_id,omitempty"`
	RetryAfter int64  `json:"retry_after,omitempty"`
	Remaining  int    `json:"remaining,omitempty"`
}

// NewErrorResponse builds an error body carrying the request trace ID.
func NewErrorResponse(c *gin.Context, message string) ErrorResponse {
	return ErrorResponse{
		Error:   message,
		TraceID: middleware.GetTraceID(c),
	}
}

// SendCodeRequest asks for a verification code.
type SendCodeRequest struct {
	Phone   string `json:"phone" binding:"required"`
	Purpose string `json:"purpose" binding:"required"`
}

// SendCodeResponse reports a successful issuance.
type SendCodeResponse struct {
	ExpiresIn int64 `json:"expires_in"`
}

// LoginRequest authenticates with a phone and either a login code or a
// password. Exactly one of the two credentials must be present.
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

// RegisterRequest creates an account with a phone and a register code.
type RegisterRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// BindPhoneRequest binds or replaces the account phone.
type BindPhoneRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// ChangePasswordRequest replaces the account password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ResetPasswordRequest replaces a forgotten password after code verification.
type ResetPasswordRequest struct {
	Phone       string `json:"phone" binding:"required"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// DeleteAccountRequest confirms deletion with a fresh login code.
type DeleteAccountRequest struct {
	Code string `json:"code" binding:"required"`
}

// TokenResponse carries an issued token pair.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID              string     `json:"id"`
	Phone           string     `json:"phone,omitempty"`
	Status          string     `json:"status"`
	PhoneVerifiedAt *time.Time `json:"phone_verified_at,omitempty"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Account   AccountResponse `json:"account"`
	Tokens    TokenResponse   `json:"tokens"`
	IsNewUser bool            `json:"is_new_user"`
}

func newTokenResponse(pair *port.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(pair.AccessExpiresIn.Seconds()),
	}
}

func newAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:              account.ID,
		Phone:           account.Phone.String(),
		Status:          string(account.Status),
		PhoneVerifiedAt: account.PhoneVerifiedAt,
		LastLoginAt:     account.LastLoginAt,
		CreatedAt:       account.CreatedAt,
	}
}
