package postgres

import (
	"context"
	"testing"
	"time"

	"creator-payout-service/internal/core/domain"
	"creator-payout-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWithdrawal(accountID uuid.UUID) *domain.WithdrawalRequest {
	return &domain.WithdrawalRequest{
		ID:            uuid.New(),
		AccountID:     accountID,
		Amount:        500,
		PayoutMethod:  "bkash-personal",
		PayoutDetails: map[string]string{"number": "01700000000"},
		Status:        domain.WithdrawalStatusPending,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func withdrawalColumnNames() []string {
	return []string{"id", "account_id", "amount", "payout_method", "payout_details", "status", "notes", "created_at", "processed_at"}
}

func withdrawalRow(w *domain.WithdrawalRequest) *pgxmock.Rows {
	return pgxmock.NewRows(withdrawalColumnNames()).AddRow(
		w.ID, w.AccountID, w.Amount, w.PayoutMethod, w.PayoutDetails,
		w.Status, w.Notes, w.CreatedAt, w.ProcessedAt,
	)
}

func TestWithdrawalRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	w := newTestWithdrawal(uuid.New())
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO withdrawal_requests").
		WithArgs(w.ID, w.AccountID, w.Amount, w.PayoutMethod, w.PayoutDetails,
			w.Status, w.Notes, w.CreatedAt, w.ProcessedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, tx, w))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	w := newTestWithdrawal(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM withdrawal_requests WHERE id").
		WithArgs(w.ID).
		WillReturnRows(withdrawalRow(w))

	result, err := repo.GetByID(context.Background(), w.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.Equal(t, domain.WithdrawalStatusPending, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_ListByAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	accountID := uuid.New()
	w1 := newTestWithdrawal(accountID)
	w2 := newTestWithdrawal(accountID)
	w2.Status = domain.WithdrawalStatusCompleted

	rows := pgxmock.NewRows(withdrawalColumnNames()).
		AddRow(w1.ID, w1.AccountID, w1.Amount, w1.PayoutMethod, w1.PayoutDetails,
			w1.Status, w1.Notes, w1.CreatedAt, w1.ProcessedAt).
		AddRow(w2.ID, w2.AccountID, w2.Amount, w2.PayoutMethod, w2.PayoutDetails,
			w2.Status, w2.Notes, w2.CreatedAt, w2.ProcessedAt)

	mock.ExpectQuery("SELECT .+ FROM withdrawal_requests").
		WithArgs(accountID).
		WillReturnRows(rows)

	result, err := repo.ListByAccount(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, w1.ID, result[0].ID)
	assert.Equal(t, w2.ID, result[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_List_WithStatusFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	w := newTestWithdrawal(uuid.New())
	status := domain.WithdrawalStatusPending

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(status).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM withdrawal_requests WHERE status").
		WithArgs(status, 20, 0).
		WillReturnRows(withdrawalRow(w))

	result, total, err := repo.List(context.Background(), ports.WithdrawalListParams{
		Status:   &status,
		Page:     1,
		PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, result, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_SumOpenAmount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	accountID := uuid.New()

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(accountID).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(300)))

	sum, err := repo.SumOpenAmount(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_UpdateStatus_Applied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	id := uuid.New()
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE withdrawal_requests").
		WithArgs(domain.WithdrawalStatusProcessing, (*string)(nil), (*time.Time)(nil), id, domain.WithdrawalStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	applied, err := repo.UpdateStatus(ctx, tx, id,
		domain.WithdrawalStatusPending, domain.WithdrawalStatusProcessing, nil, nil)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_UpdateStatus_GuardMiss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	id := uuid.New()
	ctx := context.Background()

	// No row is in the expected state; zero rows affected.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE withdrawal_requests").
		WithArgs(domain.WithdrawalStatusCompleted, (*string)(nil), pgxmock.AnyArg(), id, domain.WithdrawalStatusProcessing).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	now := time.Now().UTC()
	applied, err := repo.UpdateStatus(ctx, tx, id,
		domain.WithdrawalStatusProcessing, domain.WithdrawalStatusCompleted, nil, &now)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}
