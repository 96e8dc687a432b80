package handler

import (
	"time"

	"creator-payout-service/internal/adapter/http/dto"
	"creator-payout-service/internal/adapter/http/middleware"
	"creator-payout-service/internal/core/ports"
	"creator-payout-service/pkg/apperror"
	"creator-payout-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SecurityHandler handles the PIN and OTP action endpoints.
type SecurityHandler struct {
	pinSvc ports.PinService
	otpSvc ports.OTPService
}

// NewSecurityHandler creates a new SecurityHandler.
func NewSecurityHandler(pinSvc ports.PinService, otpSvc ports.OTPService) *SecurityHandler {
	return &SecurityHandler{pinSvc: pinSvc, otpSvc: otpSvc}
}

// Action handles POST /api/v1/security/:action. All verification
// actions live behind one path so the route-level rate limit covers
// them uniformly.
func (h *SecurityHandler) Action(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	switch c.Param("action") {
	case "set-pin":
		h.setPin(c, accountID)
	case "verify-pin":
		h.verifyPin(c, accountID)
	case "change-pin":
		h.changePin(c, accountID)
	case "send-otp":
		h.sendOTP(c, accountID)
	case "verify-otp":
		h.verifyOTP(c, accountID)
	case "set-pin-after-otp":
		h.setPinAfterOTP(c, accountID)
	default:
		response.Error(c, apperror.ErrNotFound("action"))
	}
}

func (h *SecurityHandler) setPin(c *gin.Context, accountID uuid.UUID) {
	var req dto.SetPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.pinSvc.SetPin(c.Request.Context(), accountID, req.Pin); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.SuccessResult{Success: true})
}

func (h *SecurityHandler) verifyPin(c *gin.Context, accountID uuid.UUID) {
	var req dto.VerifyPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.pinSvc.VerifyPin(c.Request.Context(), accountID, req.Pin); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.VerifiedResult{Verified: true})
}

func (h *SecurityHandler) changePin(c *gin.Context, accountID uuid.UUID) {
	var req dto.ChangePinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.pinSvc.ChangePin(c.Request.Context(), accountID, req.Pin, req.NewPin); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.SuccessResult{Success: true})
}

func (h *SecurityHandler) sendOTP(c *gin.Context, accountID uuid.UUID) {
	// Body is optional for this action
	var req dto.SendOTPRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.otpSvc.SendOTP(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.SendOTPResult{
		Success:          true,
		ExpiresInSeconds: result.ExpiresInSeconds,
	})
}

func (h *SecurityHandler) verifyOTP(c *gin.Context, accountID uuid.UUID) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	grant, err := h.otpSvc.VerifyOTP(c.Request.Context(), accountID, req.OTP)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.VerifyOTPResult{
		Verified:        true,
		WithdrawalToken: grant.Token,
		TokenExpiresAt:  grant.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *SecurityHandler) setPinAfterOTP(c *gin.Context, accountID uuid.UUID) {
	var req dto.SetPinAfterOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.otpSvc.SetPinAfterOTP(c.Request.Context(), accountID, req.NewPin); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.SuccessResult{Success: true})
}
