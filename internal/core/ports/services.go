package ports

import (
	"context"
	"time"

	"creator-payout-service/internal/core/domain"

	"github.com/google/uuid"
)

// HashService handles one-way hashing of short numeric secrets
// (PINs, OTP codes) with a slow, salted algorithm.
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// LockoutStatus is the outcome of a rate-limit check.
type LockoutStatus struct {
	Allowed   bool
	Remaining int
}

// LockoutStore is the per-account failure counter with a rolling
// lockout window. Every PIN or OTP verification must Check before
// comparing and RecordFailure/Reset after.
type LockoutStore interface {
	Check(ctx context.Context, accountID uuid.UUID) (*LockoutStatus, error)
	// RecordFailure atomically increments the counter and refreshes the
	// window. Returns the attempt count after the increment.
	RecordFailure(ctx context.Context, accountID uuid.UUID) (int, error)
	Reset(ctx context.Context, accountID uuid.UUID) error
}

// AccessClaims holds the parsed identity of an authenticated caller.
type AccessClaims struct {
	SubjectID   uuid.UUID
	Role        string // "creator" or "admin"
	Permissions []string
}

// TokenService handles JWT operations for caller auth and for the
// short-lived step-up proof minted by a successful OTP verification.
type TokenService interface {
	GenerateAccess(subjectID uuid.UUID, role string, permissions []string) (string, time.Time, error)
	ValidateAccess(token string) (*AccessClaims, error)
	GenerateStepUp(accountID uuid.UUID) (string, time.Time, error)
	// ValidateStepUp checks the proof belongs to the account and has not
	// expired.
	ValidateStepUp(token string, accountID uuid.UUID) error
}

// Notifier dispatches a notification to the delivery collaborator.
// Delivery is best-effort; failures are logged by callers, never
// surfaced as operation failures.
type Notifier interface {
	Send(ctx context.Context, n domain.Notification) error
}

// --- Service Ports (Business Logic) ---

// PinService governs the lifecycle of a creator's withdrawal PIN.
type PinService interface {
	SetPin(ctx context.Context, accountID uuid.UUID, pin string) error
	VerifyPin(ctx context.Context, accountID uuid.UUID, pin string) error
	ChangePin(ctx context.Context, accountID uuid.UUID, oldPin, newPin string) error
}

// OTPSendResult reports a successful issuance. The code itself is only
// ever dispatched out-of-band.
type OTPSendResult struct {
	ExpiresInSeconds int
}

// StepUpGrant is the proof of a just-completed OTP verification,
// consumed by withdrawal submission.
type StepUpGrant struct {
	Token     string
	ExpiresAt time.Time
}

// OTPService governs one-time codes for step-up auth and PIN recovery.
type OTPService interface {
	SendOTP(ctx context.Context, accountID uuid.UUID) (*OTPSendResult, error)
	VerifyOTP(ctx context.Context, accountID uuid.UUID, code string) (*StepUpGrant, error)
	SetPinAfterOTP(ctx context.Context, accountID uuid.UUID, newPin string) error
}

// SubmitWithdrawalRequest holds validated input for withdrawal submission.
type SubmitWithdrawalRequest struct {
	AccountID     uuid.UUID
	StepUpToken   string
	Amount        int64
	PayoutMethod  string
	PayoutDetails map[string]string
}

// BalanceBreakdown is the ledger computation at one decision point.
type BalanceBreakdown struct {
	TotalReceived int64 `json:"total_received"`
	Fee           int64 `json:"fee"`
	OpenHold      int64 `json:"open_hold"` // Sum of PENDING/PROCESSING request amounts
	Available     int64 `json:"available"`
}

// WithdrawalService drives the withdrawal request lifecycle.
type WithdrawalService interface {
	Submit(ctx context.Context, req SubmitWithdrawalRequest) (*domain.WithdrawalRequest, error)
	Approve(ctx context.Context, requestID uuid.UUID, adminNote string) (*domain.WithdrawalRequest, error)
	Reject(ctx context.Context, requestID uuid.UUID, adminNote string) (*domain.WithdrawalRequest, error)
	Complete(ctx context.Context, requestID uuid.UUID, adminNote string) (*domain.WithdrawalRequest, error)
	AvailableBalance(ctx context.Context, accountID uuid.UUID) (*BalanceBreakdown, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.WithdrawalRequest, error)
	List(ctx context.Context, params WithdrawalListParams) ([]domain.WithdrawalRequest, int64, error)
}
