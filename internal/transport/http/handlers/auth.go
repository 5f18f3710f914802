package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zqshi/thinkcraft-auth/internal/transport/http/middleware"
	"github.com/zqshi/thinkcraft-auth/internal/usecase"
)

// AuthHandler exposes login, register, refresh, and logout endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler wires the handler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login handles POST /api/v1/auth/login. A code logs in (registering
// unknown phones on the fly, tagged with is_new_user); a password logs in
// an existing account only.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "phone and a code or password are required"))
		return
	}

	var (
		outcome *usecase.LoginOutcome
		err     error
	)
	switch {
	case req.Code != "":
		outcome, err = h.auth.Login(c.Request.Context(), req.Phone, req.Code)
	case req.Password != "":
		outcome, err = h.auth.LoginWithPassword(c.Request.Context(), req.Phone, req.Password)
	default:
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "either code or password is required"))
		return
	}
	if err != nil {
		cases := append([]ErrorCase{
			{Err: usecase.ErrAccountNotActive, Status: http.StatusForbidden, Message: "account is not active"},
			{Err: usecase.ErrPhoneAlreadyRegistered, Status: http.StatusConflict, Message: "phone number already registered"},
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid phone or password"},
		}, verificationErrorCases...)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Account:   newAccountResponse(outcome.Account),
		Tokens:    newTokenResponse(outcome.Tokens),
		IsNewUser: outcome.IsNewUser,
	})
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "phone and code are required"))
		return
	}

	outcome, err := h.auth.Register(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		cases := append([]ErrorCase{
			{Err: usecase.ErrPhoneAlreadyRegistered, Status: http.StatusConflict, Message: "phone number already registered"},
		}, verificationErrorCases...)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "registration failed")
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{
		Account:   newAccountResponse(outcome.Account),
		Tokens:    newTokenResponse(outcome.Tokens),
		IsNewUser: true,
	})
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh_token is required"))
		return
	}

	pair, err := h.auth.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrTokenExpired, Status: http.StatusUnauthorized, Message: "refresh token expired"},
			{Err: usecase.ErrTokenInvalid, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusUnauthorized, Message: "account no longer exists"},
			{Err: usecase.ErrAccountNotActive, Status: http.StatusForbidden, Message: "account is not active"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "token refresh failed")
		return
	}

	c.JSON(http.StatusOK, newTokenResponse(pair))
}

// Logout handles POST /api/v1/auth/logout. Tokens stay valid until expiry;
// the call exists so clients get an explicit session boundary and the event
// stream records it.
func (h *AuthHandler) Logout(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), accountID); err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "logout failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
