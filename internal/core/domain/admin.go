package domain

import (
	"time"

	"github.com/google/uuid"
)

// Admin permission flags.
const (
	PermManageWithdrawals = "manage_withdrawals"
	PermManageCreators    = "manage_creators"
	PermManagePayouts     = "manage_payouts"
	PermManageSettings    = "manage_settings"
)

// AllPermissions lists every known permission flag.
var AllPermissions = []string{
	PermManageWithdrawals,
	PermManageCreators,
	PermManagePayouts,
	PermManageSettings,
}

// Admin is a platform administrator driving the withdrawal lifecycle.
type Admin struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// Has reports whether the admin holds the given permission flag.
func (a *Admin) Has(perm string) bool {
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// IsSuper reports whether the admin holds every known permission flag.
// This is the single derived predicate used for "full admin" checks.
func (a *Admin) IsSuper() bool {
	for _, p := range AllPermissions {
		if !a.Has(p) {
			return false
		}
	}
	return true
}
