package postgres

import (
	"context"
	"testing"
	"time"

	"creator-payout-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCode(accountID uuid.UUID) *domain.OneTimeCode {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.OneTimeCode{
		ID:        uuid.New(),
		AccountID: accountID,
		CodeHash:  "$argon2id$v=19$m=65536,t=1,p=4$salt$hash",
		Attempts:  0,
		Used:      false,
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
}

func codeColumnNames() []string {
	return []string{"id", "account_id", "code_hash", "attempts", "used", "used_at", "created_at", "expires_at"}
}

func codeRow(c *domain.OneTimeCode) *pgxmock.Rows {
	return pgxmock.NewRows(codeColumnNames()).AddRow(
		c.ID, c.AccountID, c.CodeHash, c.Attempts,
		c.Used, c.UsedAt, c.CreatedAt, c.ExpiresAt,
	)
}

func TestOneTimeCodeRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOneTimeCodeRepo(mock)
	c := newTestCode(uuid.New())
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO one_time_codes").
		WithArgs(c.ID, c.AccountID, c.CodeHash, c.Attempts, c.Used, c.UsedAt, c.CreatedAt, c.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, tx, c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOneTimeCodeRepo_GetLatestActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOneTimeCodeRepo(mock)
	accountID := uuid.New()
	c := newTestCode(accountID)

	mock.ExpectQuery("SELECT .+ FROM one_time_codes").
		WithArgs(accountID, pgxmock.AnyArg()).
		WillReturnRows(codeRow(c))

	result, err := repo.GetLatestActive(context.Background(), accountID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, c.ID, result.ID)
	assert.False(t, result.Used)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOneTimeCodeRepo_GetLatestActive_None(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOneTimeCodeRepo(mock)
	accountID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM one_time_codes").
		WithArgs(accountID, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(codeColumnNames()))

	result, err := repo.GetLatestActive(context.Background(), accountID)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOneTimeCodeRepo_GetLatestUsed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOneTimeCodeRepo(mock)
	accountID := uuid.New()
	c := newTestCode(accountID)
	usedAt := time.Now().UTC().Truncate(time.Microsecond)
	c.Used = true
	c.UsedAt = &usedAt

	mock.ExpectQuery("SELECT .+ FROM one_time_codes").
		WithArgs(accountID).
		WillReturnRows(codeRow(c))

	result, err := repo.GetLatestUsed(context.Background(), accountID)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotNil(t, result.UsedAt)
	assert.Equal(t, usedAt, *result.UsedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOneTimeCodeRepo_InvalidateActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOneTimeCodeRepo(mock)
	accountID := uuid.New()
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE one_time_codes SET used = true WHERE account_id").
		WithArgs(accountID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.InvalidateActive(ctx, tx, accountID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOneTimeCodeRepo_IncrementAttempts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOneTimeCodeRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("UPDATE one_time_codes SET attempts = attempts").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"attempts"}).AddRow(2))

	attempts, err := repo.IncrementAttempts(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOneTimeCodeRepo_MarkVerified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOneTimeCodeRepo(mock)
	id := uuid.New()
	usedAt := time.Now().UTC()

	mock.ExpectExec("UPDATE one_time_codes SET used = true, used_at").
		WithArgs(usedAt, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.MarkVerified(context.Background(), id, usedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOneTimeCodeRepo_Retire(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOneTimeCodeRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE one_time_codes SET used = true WHERE id").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Retire(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}
