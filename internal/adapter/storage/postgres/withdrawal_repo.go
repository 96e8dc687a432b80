package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"creator-payout-service/internal/core/domain"
	"creator-payout-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WithdrawalRepo implements ports.WithdrawalRepository.
type WithdrawalRepo struct {
	pool Pool
}

// NewWithdrawalRepo creates a new WithdrawalRepo.
func NewWithdrawalRepo(pool Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

const withdrawalColumns = `id, account_id, amount, payout_method, payout_details, status, notes, created_at, processed_at`

// Create inserts a new withdrawal request within a database transaction.
func (r *WithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.WithdrawalRequest) error {
	query := `INSERT INTO withdrawal_requests (id, account_id, amount, payout_method, payout_details, status, notes, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.AccountID, w.Amount, w.PayoutMethod, w.PayoutDetails,
		w.Status, w.Notes, w.CreatedAt, w.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert withdrawal request: %w", err)
	}
	return nil
}

// GetByID fetches a withdrawal request by UUID.
func (r *WithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1`
	return scanWithdrawal(r.pool.QueryRow(ctx, query, id))
}

// ListByAccount fetches all requests for an account, newest first.
func (r *WithdrawalRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
		WHERE account_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals by account: %w", err)
	}
	defer rows.Close()

	return collectWithdrawals(rows)
}

// List fetches requests with filtering and pagination for the admin view.
func (r *WithdrawalRepo) List(ctx context.Context, params ports.WithdrawalListParams) ([]domain.WithdrawalRequest, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM withdrawal_requests %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count withdrawals: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM withdrawal_requests %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		withdrawalColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list withdrawals: %w", err)
	}
	defer rows.Close()

	requests, err := collectWithdrawals(rows)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// SumOpenAmount totals PENDING and PROCESSING request amounts for the account.
func (r *WithdrawalRepo) SumOpenAmount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return sumOpen(ctx, r.pool, accountID)
}

// SumOpenAmountTx is SumOpenAmount inside the caller's transaction, so
// the sum reflects rows locked by that transaction.
func (r *WithdrawalRepo) SumOpenAmountTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	return sumOpen(ctx, tx, accountID)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func sumOpen(ctx context.Context, q rowQuerier, accountID uuid.UUID) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM withdrawal_requests
		WHERE account_id = $1 AND status IN ('PENDING', 'PROCESSING')`

	var sum int64
	if err := q.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum open withdrawals: %w", err)
	}
	return sum, nil
}

// UpdateStatus applies a transition guarded on the expected current
// status. Returns false when zero rows matched, i.e. the request was not
// in the expected state (concurrent admin action or illegal edge).
func (r *WithdrawalRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.WithdrawalStatus, notes *string, processedAt *time.Time) (bool, error) {
	query := `UPDATE withdrawal_requests
		SET status = $1, notes = COALESCE($2, notes), processed_at = $3
		WHERE id = $4 AND status = $5`

	tag, err := tx.Exec(ctx, query, to, notes, processedAt, id, from)
	if err != nil {
		return false, fmt.Errorf("update withdrawal status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func collectWithdrawals(rows pgx.Rows) ([]domain.WithdrawalRequest, error) {
	var requests []domain.WithdrawalRequest
	for rows.Next() {
		w := domain.WithdrawalRequest{}
		err := rows.Scan(
			&w.ID, &w.AccountID, &w.Amount, &w.PayoutMethod, &w.PayoutDetails,
			&w.Status, &w.Notes, &w.CreatedAt, &w.ProcessedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan withdrawal row: %w", err)
		}
		requests = append(requests, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate withdrawal rows: %w", err)
	}
	return requests, nil
}

func scanWithdrawal(row pgx.Row) (*domain.WithdrawalRequest, error) {
	w := &domain.WithdrawalRequest{}
	err := row.Scan(
		&w.ID, &w.AccountID, &w.Amount, &w.PayoutMethod, &w.PayoutDetails,
		&w.Status, &w.Notes, &w.CreatedAt, &w.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan withdrawal request: %w", err)
	}
	return w, nil
}
