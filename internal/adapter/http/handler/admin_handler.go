package handler

import (
	"context"
	"strconv"

	"creator-payout-service/internal/adapter/http/dto"
	"creator-payout-service/internal/core/domain"
	"creator-payout-service/internal/core/ports"
	"creator-payout-service/pkg/apperror"
	"creator-payout-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler handles admin withdrawal management endpoints.
type AdminHandler struct {
	withdrawalSvc ports.WithdrawalService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(withdrawalSvc ports.WithdrawalService) *AdminHandler {
	return &AdminHandler{withdrawalSvc: withdrawalSvc}
}

// List handles GET /api/v1/admin/withdrawals.
func (h *AdminHandler) List(c *gin.Context) {
	params := ports.WithdrawalListParams{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "page_size", 20),
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.WithdrawalStatus(raw)
		switch status {
		case domain.WithdrawalStatusPending, domain.WithdrawalStatusProcessing,
			domain.WithdrawalStatusCompleted, domain.WithdrawalStatusRejected:
			params.Status = &status
		default:
			response.Error(c, apperror.Validation("unknown status filter"))
			return
		}
	}

	items, total, err := h.withdrawalSvc.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.WithdrawalResponse, 0, len(items))
	for i := range items {
		out = append(out, toWithdrawalResponse(&items[i]))
	}

	totalPages := int(total) / params.PageSize
	if int(total)%params.PageSize != 0 {
		totalPages++
	}
	response.OK(c, dto.WithdrawalListResponse{
		Items:      out,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	})
}

// Approve handles POST /api/v1/admin/withdrawals/:id/approve.
func (h *AdminHandler) Approve(c *gin.Context) {
	h.action(c, h.withdrawalSvc.Approve)
}

// Reject handles POST /api/v1/admin/withdrawals/:id/reject.
func (h *AdminHandler) Reject(c *gin.Context) {
	h.action(c, h.withdrawalSvc.Reject)
}

// Complete handles POST /api/v1/admin/withdrawals/:id/complete.
func (h *AdminHandler) Complete(c *gin.Context) {
	h.action(c, h.withdrawalSvc.Complete)
}

type adminAction func(ctx context.Context, id uuid.UUID, note string) (*domain.WithdrawalRequest, error)

func (h *AdminHandler) action(c *gin.Context, fn adminAction) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid withdrawal id"))
		return
	}

	var req dto.AdminActionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, apperror.Validation(err.Error()))
			return
		}
	}

	result, err := fn(c.Request.Context(), id, req.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWithdrawalResponse(result))
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
