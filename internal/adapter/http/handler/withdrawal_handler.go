package handler

import (
	"time"

	"creator-payout-service/internal/adapter/http/dto"
	"creator-payout-service/internal/adapter/http/middleware"
	"creator-payout-service/internal/core/domain"
	"creator-payout-service/internal/core/ports"
	"creator-payout-service/pkg/apperror"
	"creator-payout-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// WithdrawalHandler handles creator-facing withdrawal endpoints.
type WithdrawalHandler struct {
	withdrawalSvc ports.WithdrawalService
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(withdrawalSvc ports.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalSvc: withdrawalSvc}
}

// Submit handles POST /api/v1/withdrawals.
func (h *WithdrawalHandler) Submit(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.SubmitWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.withdrawalSvc.Submit(c.Request.Context(), ports.SubmitWithdrawalRequest{
		AccountID:     accountID,
		StepUpToken:   req.WithdrawalToken,
		Amount:        req.Amount,
		PayoutMethod:  req.PayoutMethod,
		PayoutDetails: req.PayoutDetails,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWithdrawalResponse(result))
}

// ListOwn handles GET /api/v1/withdrawals.
func (h *WithdrawalHandler) ListOwn(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	items, err := h.withdrawalSvc.ListByAccount(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.WithdrawalResponse, 0, len(items))
	for i := range items {
		out = append(out, toWithdrawalResponse(&items[i]))
	}
	response.OK(c, out)
}

// Balance handles GET /api/v1/withdrawals/balance.
func (h *WithdrawalHandler) Balance(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	breakdown, err := h.withdrawalSvc.AvailableBalance(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		TotalReceived: breakdown.TotalReceived,
		Fee:           breakdown.Fee,
		OpenHold:      breakdown.OpenHold,
		Available:     breakdown.Available,
	})
}

// toWithdrawalResponse converts a domain.WithdrawalRequest to its DTO.
func toWithdrawalResponse(w *domain.WithdrawalRequest) dto.WithdrawalResponse {
	resp := dto.WithdrawalResponse{
		ID:            w.ID.String(),
		AccountID:     w.AccountID.String(),
		Amount:        w.Amount,
		PayoutMethod:  w.PayoutMethod,
		PayoutDetails: w.PayoutDetails,
		Status:        string(w.Status),
		Notes:         w.Notes,
		CreatedAt:     w.CreatedAt.UTC().Format(time.RFC3339),
	}
	if w.ProcessedAt != nil {
		s := w.ProcessedAt.UTC().Format(time.RFC3339)
		resp.ProcessedAt = &s
	}
	return resp
}
