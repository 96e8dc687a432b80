package domain

import (
	"time"

	"github.com/google/uuid"
)

// OneTimeCode is a short-lived step-up verification code. Rows are never
// deleted; used and expired codes remain as an audit trail.
//
// Invariant: at most one row per account with used=false and
// expires_at in the future.
type OneTimeCode struct {
	ID        uuid.UUID  `json:"id"`
	AccountID uuid.UUID  `json:"account_id"`
	CodeHash  string     `json:"-"` // Argon2id, never expose
	Attempts  int        `json:"attempts"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"` // Set when verified successfully
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// IsLive reports whether the code can still be verified at the given time.
func (c *OneTimeCode) IsLive(now time.Time) bool {
	return !c.Used && now.Before(c.ExpiresAt)
}
