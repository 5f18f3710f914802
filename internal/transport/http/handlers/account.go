package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zqshi/thinkcraft-auth/internal/core/domain"
	"github.com/zqshi/thinkcraft-auth/internal/infra/security"
	"github.com/zqshi/thinkcraft-auth/internal/transport/http/middleware"
	"github.com/zqshi/thinkcraft-auth/internal/usecase"
)

// AccountHandler exposes the account management endpoints.
type AccountHandler struct {
	accounts *usecase.AccountService
}

// NewAccountHandler wires the handler.
func NewAccountHandler(accounts *usecase.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Get handles GET /api/v1/account.
func (h *AccountHandler) Get(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.accounts.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to load account")
		return
	}

	c.JSON(http.StatusOK, newAccountResponse(account))
}

// BindPhone handles POST /api/v1/account/bind-phone.
func (h *AccountHandler) BindPhone(c *gin.Context) {
	h.phoneUpdate(c, h.accounts.BindPhone)
}

// ChangePhone handles POST /api/v1/account/change-phone.
func (h *AccountHandler) ChangePhone(c *gin.Context) {
	h.phoneUpdate(c, h.accounts.ChangePhone)
}

func (h *AccountHandler) phoneUpdate(c *gin.Context, apply func(ctx context.Context, accountID, phone, code string) error) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req BindPhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "phone and code are required"))
		return
	}

	if err := apply(c.Request.Context(), accountID, req.Phone, req.Code); err != nil {
		cases := append([]ErrorCase{
			{Err: usecase.ErrPhoneAlreadyRegistered, Status: http.StatusConflict, Message: "phone number already registered"},
			{Err: usecase.ErrPhoneAlreadyBound, Status: http.StatusConflict, Message: "account already has a bound phone"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrAccountNotActive, Status: http.StatusConflict, Message: "account is not active"},
			{Err: domain.ErrSamePhone, Status: http.StatusBadRequest, Message: "new phone matches the current one"},
			{Err: domain.ErrPhoneNotBound, Status: http.StatusConflict, Message: "account has no bound phone"},
		}, verificationErrorCases...)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to update phone")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "phone updated"})
}

// ChangePassword handles POST /api/v1/account/change-password.
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "new_password is required"))
		return
	}

	err := h.accounts.ChangePassword(c.Request.Context(), accountID, req.OldPassword, req.NewPassword)
	if err != nil {
		var policyErr *security.PasswordValidationError
		if errors.As(err, &policyErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, policyErr.Message))
			return
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to change password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

// ResetPassword handles POST /api/v1/auth/reset-password. The route is
// public: a reset-purpose code stands in for the session.
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "phone, code, and new_password are required"))
		return
	}

	err := h.accounts.ResetPassword(c.Request.Context(), req.Phone, req.Code, req.NewPassword)
	if err != nil {
		var policyErr *security.PasswordValidationError
		if errors.As(err, &policyErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, policyErr.Message))
			return
		}
		cases := append([]ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "no account for this phone number"},
			{Err: usecase.ErrAccountNotActive, Status: http.StatusForbidden, Message: "account is not active"},
		}, verificationErrorCases...)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to reset password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password reset"})
}

// Delete handles POST /api/v1/account/delete. The account is soft deleted
// after a fresh login-purpose code confirms phone possession.
func (h *AccountHandler) Delete(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "code is required"))
		return
	}

	if err := h.accounts.DeleteAccount(c.Request.Context(), accountID, req.Code); err != nil {
		cases := append([]ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrAccountNotActive, Status: http.StatusConflict, Message: "account is already deleted or locked"},
			{Err: domain.ErrPhoneNotBound, Status: http.StatusConflict, Message: "account has no bound phone"},
		}, verificationErrorCases...)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to delete account")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}

// Lock handles POST /api/v1/admin/accounts/:id/lock.
func (h *AccountHandler) Lock(c *gin.Context) {
	id := c.Param("id")
	if err := h.accounts.Lock(c.Request.Context(), id); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrAccountNotActive, Status: http.StatusConflict, Message: "account cannot be locked"},
		}, http.StatusInternalServerError, "failed to lock account")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "account locked"})
}

// Unlock handles POST /api/v1/admin/accounts/:id/unlock.
func (h *AccountHandler) Unlock(c *gin.Context) {
	id := c.Param("id")
	if err := h.accounts.Unlock(c.Request.Context(), id); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrAccountNotActive, Status: http.StatusConflict, Message: "account cannot be unlocked"},
		}, http.StatusInternalServerError, "failed to unlock account")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "account unlocked"})
}
