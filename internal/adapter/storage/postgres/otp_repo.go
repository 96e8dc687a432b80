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

// OneTimeCodeRepo implements ports.OneTimeCodeRepository. Rows are only
// ever inserted and flipped to used; nothing is deleted.
type OneTimeCodeRepo struct {
	pool Pool
}

// NewOneTimeCodeRepo creates a new OneTimeCodeRepo.
func NewOneTimeCodeRepo(pool Pool) *OneTimeCodeRepo {
	return &OneTimeCodeRepo{pool: pool}
}

const codeColumns = `id, account_id, code_hash, attempts, used, used_at, created_at, expires_at`

// Create inserts a new code within a database transaction.
func (r *OneTimeCodeRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.OneTimeCode) error {
	query := `INSERT INTO one_time_codes (id, account_id, code_hash, attempts, used, used_at, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		c.ID, c.AccountID, c.CodeHash, c.Attempts,
		c.Used, c.UsedAt, c.CreatedAt, c.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert one-time code: %w", err)
	}
	return nil
}

// GetLatestActive fetches the newest unused, unexpired code for the account.
func (r *OneTimeCodeRepo) GetLatestActive(ctx context.Context, accountID uuid.UUID) (*domain.OneTimeCode, error) {
	query := `SELECT ` + codeColumns + ` FROM one_time_codes
		WHERE account_id = $1 AND used = false AND expires_at > $2
		ORDER BY created_at DESC LIMIT 1`

	return scanCode(r.pool.QueryRow(ctx, query, accountID, time.Now().UTC()))
}

// GetLatestUsed fetches the newest successfully verified code for the
// account. Burned and bulk-invalidated codes have no used_at and are
// excluded.
func (r *OneTimeCodeRepo) GetLatestUsed(ctx context.Context, accountID uuid.UUID) (*domain.OneTimeCode, error) {
	query := `SELECT ` + codeColumns + ` FROM one_time_codes
		WHERE account_id = $1 AND used = true AND used_at IS NOT NULL
		ORDER BY used_at DESC LIMIT 1`

	return scanCode(r.pool.QueryRow(ctx, query, accountID))
}

// InvalidateActive marks every unused code for the account as used,
// within the issuing transaction.
func (r *OneTimeCodeRepo) InvalidateActive(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	query := `UPDATE one_time_codes SET used = true WHERE account_id = $1 AND used = false`

	if _, err := tx.Exec(ctx, query, accountID); err != nil {
		return fmt.Errorf("invalidate codes: %w", err)
	}
	return nil
}

// IncrementAttempts atomically bumps the attempt counter and returns the
// new value, so concurrent wrong guesses are each counted.
func (r *OneTimeCodeRepo) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	query := `UPDATE one_time_codes SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`

	var attempts int
	err := r.pool.QueryRow(ctx, query, id).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("one-time code not found: %s", id)
		}
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	return attempts, nil
}

// MarkVerified retires a code after a successful comparison, recording
// the verification time.
func (r *OneTimeCodeRepo) MarkVerified(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	query := `UPDATE one_time_codes SET used = true, used_at = $1 WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, usedAt, id)
	if err != nil {
		return fmt.Errorf("mark code verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("one-time code not found: %s", id)
	}
	return nil
}

// Retire burns a code without recording a verification.
func (r *OneTimeCodeRepo) Retire(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE one_time_codes SET used = true WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("retire code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("one-time code not found: %s", id)
	}
	return nil
}

func scanCode(row pgx.Row) (*domain.OneTimeCode, error) {
	c := &domain.OneTimeCode{}
	err := row.Scan(
		&c.ID, &c.AccountID, &c.CodeHash, &c.Attempts,
		&c.Used, &c.UsedAt, &c.CreatedAt, &c.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan one-time code: %w", err)
	}
	return c, nil
}
