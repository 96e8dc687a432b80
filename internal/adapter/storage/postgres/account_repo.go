package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"creator-payout-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `id, display_name, email, total_received, token_balance, pin_hash, pin_set_at, created_at, updated_at`

// GetByID fetches an account by its UUID (without locking).
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches an account with pessimistic locking.
// This MUST be called within a transaction.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(tx.QueryRow(ctx, query, id))
}

// SetPin stores the hashed PIN and its set timestamp.
func (r *AccountRepo) SetPin(ctx context.Context, id uuid.UUID, pinHash string, setAt time.Time) error {
	query := `UPDATE accounts SET pin_hash = $1, pin_set_at = $2, updated_at = $2 WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, pinHash, setAt, id)
	if err != nil {
		return fmt.Errorf("update pin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}

// DeductEarnings subtracts amount from total_received, floored at 0,
// within the given transaction. Returns the new total.
func (r *AccountRepo) DeductEarnings(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	query := `UPDATE accounts
		SET total_received = GREATEST(total_received - $1, 0), updated_at = $2
		WHERE id = $3
		RETURNING total_received`

	var newTotal int64
	err := tx.QueryRow(ctx, query, amount, time.Now().UTC(), id).Scan(&newTotal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("account not found: %s", id)
		}
		return 0, fmt.Errorf("deduct earnings: %w", err)
	}
	return newTotal, nil
}

// DeductTokenBalance subtracts amount from the secondary token ledger,
// floored at 0. Callers treat failures as non-fatal.
func (r *AccountRepo) DeductTokenBalance(ctx context.Context, id uuid.UUID, amount int64) error {
	query := `UPDATE accounts
		SET token_balance = GREATEST(token_balance - $1, 0), updated_at = $2
		WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, amount, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deduct token balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.ID, &a.DisplayName, &a.Email, &a.TotalReceived, &a.TokenBalance,
		&a.PinHash, &a.PinSetAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}
