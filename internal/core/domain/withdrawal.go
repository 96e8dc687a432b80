package domain

import (
	"time"

	"github.com/google/uuid"
)

// WithdrawalStatus represents the lifecycle state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "PENDING"
	WithdrawalStatusProcessing WithdrawalStatus = "PROCESSING"
	WithdrawalStatusCompleted  WithdrawalStatus = "COMPLETED"
	WithdrawalStatusRejected   WithdrawalStatus = "REJECTED"
)

// WithdrawalRequest is a creator's ask to move funds out of the platform.
// Created by the creator-facing submission call, mutated only by admin
// actions, never deleted.
type WithdrawalRequest struct {
	ID            uuid.UUID         `json:"id"`
	AccountID     uuid.UUID         `json:"account_id"`
	Amount        int64             `json:"amount"` // Whole units
	PayoutMethod  string            `json:"payout_method"`  // e.g. "bkash-personal", "nagad"
	PayoutDetails map[string]string `json:"payout_details"` // Opaque blob (account number etc.)
	Status        WithdrawalStatus  `json:"status"`
	Notes         *string           `json:"notes,omitempty"` // Admin-authored
	CreatedAt     time.Time         `json:"created_at"`
	ProcessedAt   *time.Time        `json:"processed_at,omitempty"` // Set iff COMPLETED or REJECTED
}

// IsOpen reports whether the request still counts against the
// creator's available balance.
func (w *WithdrawalRequest) IsOpen() bool {
	return w.Status == WithdrawalStatusPending || w.Status == WithdrawalStatusProcessing
}

// IsTerminal reports whether the request reached a final state.
func (w *WithdrawalRequest) IsTerminal() bool {
	return w.Status == WithdrawalStatusCompleted || w.Status == WithdrawalStatusRejected
}

// CanTransitionTo reports whether the lifecycle permits moving to the
// target status. The only edges are PENDING→PROCESSING,
// PROCESSING→COMPLETED and PENDING→REJECTED.
func (w *WithdrawalRequest) CanTransitionTo(target WithdrawalStatus) bool {
	switch w.Status {
	case WithdrawalStatusPending:
		return target == WithdrawalStatusProcessing || target == WithdrawalStatusRejected
	case WithdrawalStatusProcessing:
		return target == WithdrawalStatusCompleted
	default:
		return false
	}
}
