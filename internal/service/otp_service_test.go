package service

import (
	"context"
	"testing"
	"time"

	"creator-payout-service/internal/core/domain"
	"creator-payout-service/internal/core/ports"
	"creator-payout-service/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

type otpTestDeps struct {
	svc         *OTPServiceImpl
	accountRepo *mocks.MockAccountRepository
	codeRepo    *mocks.MockOneTimeCodeRepository
	hashSvc     *mocks.MockHashService
	lockout     *mocks.MockLockoutStore
	tokenSvc    *mocks.MockTokenService
	notifier    *mocks.MockNotifier
	transactor  *mocks.MockDBTransactor
	ctrl        *gomock.Controller
}

func setupOTPService(t *testing.T) *otpTestDeps {
	ctrl := gomock.NewController(t)
	d := &otpTestDeps{
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		codeRepo:    mocks.NewMockOneTimeCodeRepository(ctrl),
		hashSvc:     mocks.NewMockHashService(ctrl),
		lockout:     mocks.NewMockLockoutStore(ctrl),
		tokenSvc:    mocks.NewMockTokenService(ctrl),
		notifier:    mocks.NewMockNotifier(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewOTPService(
		d.accountRepo, d.codeRepo, d.hashSvc, d.lockout,
		d.tokenSvc, d.notifier, d.transactor,
		OTPConfig{
			TTL:            10 * time.Minute,
			ResendCooldown: 60 * time.Second,
			MaxAttempts:    3,
			ProofWindow:    10 * time.Minute,
		},
		zerolog.Nop(),
	)
	return d
}

// ==================== SendOTP Tests ====================

func TestOTPService_SendOTP_Success(t *testing.T) {
	d := setupOTPService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(&domain.Account{ID: accountID}, nil)
	d.codeRepo.EXPECT().GetLatestActive(ctx, accountID).Return(nil, nil)
	d.hashSvc.EXPECT().Hash(gomock.Any()).DoAndReturn(func(code string) (string, error) {
		assert.Len(t, code, 6)
		return "$hashed", nil
	})
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.codeRepo.EXPECT().InvalidateActive(ctx, tx, accountID).Return(nil)
	d.codeRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, code *domain.OneTimeCode) error {
			assert.Equal(t, accountID, code.AccountID)
			assert.Equal(t, "$hashed", code.CodeHash)
			assert.False(t, code.Used)
			assert.Equal(t, 0, code.Attempts)
			assert.WithinDuration(t, time.Now().Add(10*time.Minute), code.ExpiresAt, 5*time.Second)
			return nil
		})
	d.notifier.EXPECT().Send(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, n domain.Notification) error {
			assert.Equal(t, domain.NotifyWithdrawalOTP, n.Type)
			assert.Len(t, n.Data["code"], 6)
			return nil
		})

	result, err := d.svc.SendOTP(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 600, result.ExpiresInSeconds)
}

func TestOTPService_SendOTP_Cooldown(t *testing.T) {
	d := setupOTPService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(&domain.Account{ID: accountID}, nil)
	d.codeRepo.EXPECT().GetLatestActive(ctx, accountID).Return(&domain.OneTimeCode{
		ID:        uuid.New(),
		AccountID: accountID,
		CreatedAt: time.Now().UTC().Add(-20 * time.Second),
		ExpiresAt: time.Now().UTC().Add(9 * time.Minute),
	}, nil)

	_, err := d.svc.SendOTP(ctx, accountID)
	appErr := assertAppErrorCode(t, err, "RATE_002")
	wait, ok := appErr.Meta["wait_seconds"].(int)
	require.True(t, ok)
	assert.InDelta(t, 40, wait, 2)
}

func TestOTPService_SendOTP_CooldownElapsed_InvalidatesPrior(t *testing.T) {
	d := setupOTPService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}

	// A live code older than the cooldown does not block reissue; it gets
	// invalidated in the issuance transaction instead.
	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(&domain.Account{ID: accountID}, nil)
	d.codeRepo.EXPECT().GetLatestActive(ctx, accountID).Return(&domain.OneTimeCode{
		ID:        uuid.New(),
		AccountID: accountID,
		CreatedAt: time.Now().UTC().Add(-2 * time.Minute),
		ExpiresAt: time.Now().UTC().Add(8 * time.Minute),
	}, nil)
	d.hashSvc.EXPECT().Hash(gomock.Any()).Return("$hashed", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.codeRepo.EXPECT().InvalidateActive(ctx, tx, accountID).Return(nil)
	d.codeRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.notifier.EXPECT().Send(ctx, gomock.Any()).Return(nil)

	_, err := d.svc.SendOTP(ctx, accountID)
	require.NoError(t, err)
}

func TestOTPService_SendOTP_NotifierFailureIsNotFatal(t *testing.T) {
	d := setupOTPService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(&domain.Account{ID: accountID}, nil)
	d.codeRepo.EXPECT().GetLatestActive(ctx, accountID).Return(nil, nil)
	d.hashSvc.EXPECT().Hash(gomock.Any()).Return("$hashed", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.codeRepo.EXPECT().InvalidateActive(ctx, tx, accountID).Return(nil)
	d.codeRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.notifier.EXPECT().Send(ctx, gomock.Any()).Return(assert.AnError)

	result, err := d.svc.SendOTP(ctx, accountID)
	require.NoError(t, err)
	assert.NotNil(t, result)
}

// ==================== VerifyOTP Tests ====================

func activeCode(accountID uuid.UUID, attempts int) *domain.OneTimeCode {
	return &domain.OneTimeCode{
		ID:        uuid.New(),
		AccountID: accountID,
		CodeHash:  "$hashed",
		Attempts:  attempts,
		CreatedAt: time.Now().UTC().Add(-time.Minute),
		ExpiresAt: time.Now().UTC().Add(9 * time.Minute),
	}
}

func TestOTPService_VerifyOTP_Success(t *testing.T) {
	d := setupOTPService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	code := activeCode(accountID, 1)
	expiresAt := time.Now().Add(10 * time.Minute)

	d.lockout.EXPECT().Check(ctx, accountID).Return(&ports.LockoutStatus{Allowed: true, Remaining: 5}, nil)
	d.codeRepo.EXPECT().GetLatestActive(ctx, accountID).Return(code, nil)
	d.hashSvc.EXPECT().Verify("123456", "$hashed").Return(true, nil)
	d.codeRepo.EXPECT().MarkVerified(ctx, code.ID, gomock.Any()).Return(nil)
	d.lockout.EXPECT().Reset(ctx, accountID).Return(nil)
	d.tokenSvc.EXPECT().GenerateStepUp(accountID).Return("step-up-token", expiresAt, nil)

	grant, err := d.svc.VerifyOTP(ctx, accountID, "123456")
	require.NoError(t, err)
	assert.Equal(t, "step-up-token", grant.Token)
	assert.Equal(t, expiresAt, grant.ExpiresAt)
}

func TestOTPService_VerifyOTP_InvalidFormat(t *testing.T) {
	d := setupOTPService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.VerifyOTP(context.Background(), uuid.New(), "12ab56")
	assertAppErrorCode(t, err, "VAL_003")
}

func TestOTPService_VerifyOTP_Locked(t *testing.T) {
	d := setupOTPService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.lockout.EXPECT().Check(ctx, accountID).Return(&ports.LockoutStatus{Allowed: false}, nil)

	_, err := d.svc.VerifyOTP(ctx, accountID, "123456")
	assertAppErrorCode(t, err, "RATE_001")
}

func TestOTPService_VerifyOTP_NoValidCode(t *testing.T) {
	d := setupOTPService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.lockout.EXPECT().Check(ctx, accountID).Return(&ports.LockoutStatus{Allowed: true, Remaining: 5}, nil)
	d.codeRepo.EXPECT().GetLatestActive(ctx, accountID).Return(nil, nil)

	_, err := d.svc.VerifyOTP(ctx, accountID, "123456")
	appErr := assertAppErrorCode(t, err, "AUTH_003")
	assert.Contains(t, appErr.Message, "no valid code")
}

func TestOTPService_VerifyOTP_WrongCode(t *testing.T) {
	d := setupOTPService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	code := activeCode(accountID, 0)

	d.lockout.EXPECT().Check(ctx, accountID).Return(&ports.LockoutStatus{Allowed: true, Remaining: 5}, nil)
	d.codeRepo.EXPECT().GetLatestActive(ctx, accountID).Return(code, nil)
	d.hashSvc.EXPECT().Verify("000000", "$hashed").Return(false, nil)
	d.codeRepo.EXPECT().IncrementAttempts(ctx, code.ID).Return(1, nil)
	d.lockout.EXPECT().RecordFailure(ctx, accountID).Return(1, nil)

	_, err := d.svc.VerifyOTP(ctx, accountID, "000000")
	appErr := assertAppErrorCode(t, err, "AUTH_004")
	assert.Equal(t, 2, appErr.Meta["remaining_attempts"])
}

func TestOTPService_VerifyOTP_BurnedAfterMaxAttempts(t *testing.T) {
	d := setupOTPService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	code := activeCode(accountID, 3)

	d.lockout.EXPECT().Check(ctx, accountID).Return(&ports.LockoutStatus{Allowed: true, Remaining: 2}, nil)
	d.codeRepo.EXPECT().GetLatestActive(ctx, accountID).Return(code, nil)
	d.codeRepo.EXPECT().Retire(ctx, code.ID).Return(nil)

	// The right code no longer helps once the attempt budget is spent.
	_, err := d.svc.VerifyOTP(ctx, accountID, "123456")
	assertAppErrorCode(t, err, "RATE_003")
}

// ==================== SetPinAfterOTP Tests ====================

func TestOTPService_SetPinAfterOTP_Success(t *testing.T) {
	d := setupOTPService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	usedAt := time.Now().UTC().Add(-2 * time.Minute)

	d.codeRepo.EXPECT().GetLatestUsed(ctx, accountID).Return(&domain.OneTimeCode{
		ID:        uuid.New(),
		AccountID: accountID,
		Used:      true,
		UsedAt:    &usedAt,
	}, nil)
	d.hashSvc.EXPECT().Hash("654321").Return("$new", nil)
	d.accountRepo.EXPECT().SetPin(ctx, accountID, "$new", gomock.Any()).Return(nil)

	require.NoError(t, d.svc.SetPinAfterOTP(ctx, accountID, "654321"))
}

func TestOTPService_SetPinAfterOTP_ProofExpired(t *testing.T) {
	d := setupOTPService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	usedAt := time.Now().UTC().Add(-11 * time.Minute)

	d.codeRepo.EXPECT().GetLatestUsed(ctx, accountID).Return(&domain.OneTimeCode{
		ID:        uuid.New(),
		AccountID: accountID,
		Used:      true,
		UsedAt:    &usedAt,
	}, nil)

	err := d.svc.SetPinAfterOTP(ctx, accountID, "654321")
	assertAppErrorCode(t, err, "AUTH_005")
}

func TestOTPService_SetPinAfterOTP_NoVerifiedCode(t *testing.T) {
	d := setupOTPService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.codeRepo.EXPECT().GetLatestUsed(ctx, accountID).Return(nil, nil)

	err := d.svc.SetPinAfterOTP(ctx, accountID, "654321")
	assertAppErrorCode(t, err, "AUTH_005")
}

func TestOTPService_SetPinAfterOTP_InvalidFormat(t *testing.T) {
	d := setupOTPService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	usedAt := time.Now().UTC().Add(-time.Minute)

	d.codeRepo.EXPECT().GetLatestUsed(ctx, accountID).Return(&domain.OneTimeCode{
		ID:     uuid.New(),
		Used:   true,
		UsedAt: &usedAt,
	}, nil)

	err := d.svc.SetPinAfterOTP(ctx, accountID, "bad")
	assertAppErrorCode(t, err, "VAL_002")
}

func TestGenerateCode_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{6}$`, code)
		assert.GreaterOrEqual(t, code, "100000")
	}
}
