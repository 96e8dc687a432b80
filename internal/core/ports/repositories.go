package ports

import (
	"context"
	"time"

	"creator-payout-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository defines persistence operations for the PIN and
// balance-adjacent columns of creator accounts.
// Methods accepting pgx.Tx are used inside transaction blocks.
type AccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	// GetByIDForUpdate locks the account row for the duration of the
	// transaction. MUST be called within a transaction.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error)
	// SetPin stores the hashed PIN and its set timestamp.
	SetPin(ctx context.Context, id uuid.UUID, pinHash string, setAt time.Time) error
	// DeductEarnings subtracts amount from total_received, floored at 0,
	// and returns the new total. Runs inside the given transaction.
	DeductEarnings(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error)
	// DeductTokenBalance subtracts amount from the secondary token
	// ledger, floored at 0. Best-effort; callers log failures and move on.
	DeductTokenBalance(ctx context.Context, id uuid.UUID, amount int64) error
}

// OneTimeCodeRepository defines persistence for step-up verification codes.
// Rows are never deleted; they remain as an audit trail.
type OneTimeCodeRepository interface {
	Create(ctx context.Context, tx pgx.Tx, code *domain.OneTimeCode) error
	// GetLatestActive returns the newest code with used=false and
	// expires_at in the future, or nil.
	GetLatestActive(ctx context.Context, accountID uuid.UUID) (*domain.OneTimeCode, error)
	// GetLatestUsed returns the newest successfully verified code
	// (used=true with used_at set), or nil.
	GetLatestUsed(ctx context.Context, accountID uuid.UUID) (*domain.OneTimeCode, error)
	// InvalidateActive marks every unused code for the account as used.
	// Runs inside the given transaction so issuance and invalidation
	// commit together.
	InvalidateActive(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error
	// IncrementAttempts atomically bumps the attempt counter and returns
	// the new value.
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
	// MarkVerified retires a code after a successful comparison,
	// recording the verification time for the PIN-recovery window.
	MarkVerified(ctx context.Context, id uuid.UUID, usedAt time.Time) error
	// Retire burns a code without recording a verification; burned codes
	// never satisfy PIN recovery.
	Retire(ctx context.Context, id uuid.UUID) error
}

// WithdrawalRepository defines persistence operations for withdrawal requests.
type WithdrawalRepository interface {
	Create(ctx context.Context, tx pgx.Tx, w *domain.WithdrawalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.WithdrawalRequest, error)
	List(ctx context.Context, params WithdrawalListParams) ([]domain.WithdrawalRequest, int64, error)
	// SumOpenAmount totals PENDING and PROCESSING request amounts for the
	// account. The tx variant sees rows locked by the caller's transaction.
	SumOpenAmount(ctx context.Context, accountID uuid.UUID) (int64, error)
	SumOpenAmountTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error)
	// UpdateStatus applies a transition guarded on the expected current
	// status. Returns false if the guard did not match (concurrent admin
	// action or illegal edge).
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.WithdrawalStatus, notes *string, processedAt *time.Time) (bool, error)
}

// WithdrawalListParams holds filter + pagination for listing requests.
type WithdrawalListParams struct {
	Status   *domain.WithdrawalStatus
	Page     int
	PageSize int
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
