package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is a creator profile as seen by the withdrawal core. Identity
// and onboarding fields are owned elsewhere; this core reads and writes
// only the PIN and balance-adjacent columns.
type Account struct {
	ID            uuid.UUID  `json:"id"`
	DisplayName   string     `json:"display_name"`
	Email         string     `json:"email"`
	TotalReceived int64      `json:"total_received"` // Cumulative completed earnings, whole units
	TokenBalance  int64      `json:"token_balance"`  // Secondary ledger, derived projection
	PinHash       *string    `json:"-"`              // Never expose
	PinSetAt      *time.Time `json:"pin_set_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// HasPin reports whether a withdrawal PIN has been set.
func (a *Account) HasPin() bool {
	return a.PinHash != nil && *a.PinHash != ""
}
