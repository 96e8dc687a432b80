package service

import (
	"context"
	"testing"

	"creator-payout-service/internal/core/domain"
	"creator-payout-service/internal/core/ports"
	"creator-payout-service/internal/core/ports/mocks"
	"creator-payout-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type pinTestDeps struct {
	svc         *PinServiceImpl
	accountRepo *mocks.MockAccountRepository
	hashSvc     *mocks.MockHashService
	lockout     *mocks.MockLockoutStore
	ctrl        *gomock.Controller
}

func setupPinService(t *testing.T) *pinTestDeps {
	ctrl := gomock.NewController(t)
	d := &pinTestDeps{
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		hashSvc:     mocks.NewMockHashService(ctrl),
		lockout:     mocks.NewMockLockoutStore(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewPinService(d.accountRepo, d.hashSvc, d.lockout, 5, zerolog.Nop())
	return d
}

func accountWithPin(id uuid.UUID, pinHash string) *domain.Account {
	return &domain.Account{ID: id, TotalReceived: 1000, PinHash: &pinHash}
}

func assertAppErrorCode(t *testing.T, err error, code string) *apperror.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok, "expected *apperror.AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestPinService_SetPin_Success(t *testing.T) {
	d := setupPinService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(&domain.Account{ID: accountID}, nil)
	d.hashSvc.EXPECT().Hash("123456").Return("$argon2id$hash", nil)
	d.accountRepo.EXPECT().SetPin(ctx, accountID, "$argon2id$hash", gomock.Any()).Return(nil)

	require.NoError(t, d.svc.SetPin(ctx, accountID, "123456"))
}

func TestPinService_SetPin_InvalidFormat(t *testing.T) {
	d := setupPinService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	for _, pin := range []string{"", "12345", "1234567", "12345a", "12 456"} {
		err := d.svc.SetPin(ctx, accountID, pin)
		assertAppErrorCode(t, err, "VAL_002")
	}
}

func TestPinService_SetPin_AlreadySet(t *testing.T) {
	d := setupPinService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(accountWithPin(accountID, "$h"), nil)

	err := d.svc.SetPin(ctx, accountID, "123456")
	assertAppErrorCode(t, err, "CONFLICT_001")
}

func TestPinService_VerifyPin_Success(t *testing.T) {
	d := setupPinService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(accountWithPin(accountID, "$h"), nil)
	d.lockout.EXPECT().Check(ctx, accountID).Return(&ports.LockoutStatus{Allowed: true, Remaining: 5}, nil)
	d.hashSvc.EXPECT().Verify("123456", "$h").Return(true, nil)
	d.lockout.EXPECT().Reset(ctx, accountID).Return(nil)

	require.NoError(t, d.svc.VerifyPin(ctx, accountID, "123456"))
}

func TestPinService_VerifyPin_WrongPin(t *testing.T) {
	d := setupPinService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(accountWithPin(accountID, "$h"), nil)
	d.lockout.EXPECT().Check(ctx, accountID).Return(&ports.LockoutStatus{Allowed: true, Remaining: 5}, nil)
	d.hashSvc.EXPECT().Verify("000000", "$h").Return(false, nil)
	d.lockout.EXPECT().RecordFailure(ctx, accountID).Return(3, nil)

	err := d.svc.VerifyPin(ctx, accountID, "000000")
	appErr := assertAppErrorCode(t, err, "AUTH_002")
	assert.Equal(t, 2, appErr.Meta["remaining_attempts"])
}

func TestPinService_VerifyPin_Locked(t *testing.T) {
	d := setupPinService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(accountWithPin(accountID, "$h"), nil)
	d.lockout.EXPECT().Check(ctx, accountID).Return(&ports.LockoutStatus{Allowed: false, Remaining: 0}, nil)

	// The hash is never computed for a locked account.
	err := d.svc.VerifyPin(ctx, accountID, "123456")
	assertAppErrorCode(t, err, "RATE_001")
}

func TestPinService_VerifyPin_NoPinSet(t *testing.T) {
	d := setupPinService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(&domain.Account{ID: accountID}, nil)

	err := d.svc.VerifyPin(ctx, accountID, "123456")
	assertAppErrorCode(t, err, "AUTH_001")
}

func TestPinService_VerifyPin_AccountNotFound(t *testing.T) {
	d := setupPinService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(nil, nil)

	err := d.svc.VerifyPin(ctx, accountID, "123456")
	assertAppErrorCode(t, err, "PAY_003")
}

func TestPinService_ChangePin_Success(t *testing.T) {
	d := setupPinService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(accountWithPin(accountID, "$old"), nil)
	d.lockout.EXPECT().Check(ctx, accountID).Return(&ports.LockoutStatus{Allowed: true, Remaining: 5}, nil)
	d.hashSvc.EXPECT().Verify("123456", "$old").Return(true, nil)
	d.lockout.EXPECT().Reset(ctx, accountID).Return(nil)
	d.hashSvc.EXPECT().Hash("654321").Return("$new", nil)
	d.accountRepo.EXPECT().SetPin(ctx, accountID, "$new", gomock.Any()).Return(nil)

	require.NoError(t, d.svc.ChangePin(ctx, accountID, "123456", "654321"))
}

func TestPinService_ChangePin_WrongOldPin(t *testing.T) {
	d := setupPinService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(accountWithPin(accountID, "$old"), nil)
	d.lockout.EXPECT().Check(ctx, accountID).Return(&ports.LockoutStatus{Allowed: true, Remaining: 5}, nil)
	d.hashSvc.EXPECT().Verify("999999", "$old").Return(false, nil)
	d.lockout.EXPECT().RecordFailure(ctx, accountID).Return(1, nil)

	err := d.svc.ChangePin(ctx, accountID, "999999", "654321")
	assertAppErrorCode(t, err, "AUTH_002")
}

func TestPinService_ChangePin_InvalidNewPin(t *testing.T) {
	d := setupPinService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(accountWithPin(accountID, "$old"), nil)
	d.lockout.EXPECT().Check(ctx, accountID).Return(&ports.LockoutStatus{Allowed: true, Remaining: 5}, nil)
	d.hashSvc.EXPECT().Verify("123456", "$old").Return(true, nil)
	d.lockout.EXPECT().Reset(ctx, accountID).Return(nil)

	err := d.svc.ChangePin(ctx, accountID, "123456", "abc")
	assertAppErrorCode(t, err, "VAL_002")
}
