package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zqshi/thinkcraft-auth/internal/usecase"
)

// VerificationHandler exposes the code issuance endpoint.
type VerificationHandler struct {
	verification *usecase.VerificationService
}

// NewVerificationHandler wires the handler.
func NewVerificationHandler(verification *usecase.VerificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

// SendCode handles POST /api/v1/auth/send-code.
func (h *VerificationHandler) SendCode(c *gin.Context) {
	var req SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "phone and purpose are required"))
		return
	}

	result, err := h.verification.SendCode(c.Request.Context(), req.Phone, req.Purpose)
	if err != nil {
		cases := append([]ErrorCase{
			{Err: usecase.ErrPhoneAlreadyRegistered, Status: http.StatusConflict, Message: "phone number already registered"},
			{Err: usecase.ErrPhoneAlreadyBound, Status: http.StatusConflict, Message: "phone number already bound"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "no account for this phone number"},
		}, verificationErrorCases...)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to send verification code")
		return
	}

	c.JSON(http.StatusOK, SendCodeResponse{ExpiresIn: int64(result.ExpiresIn.Seconds())})
}
