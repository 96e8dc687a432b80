package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"creator-payout-service/internal/core/domain"
	"creator-payout-service/internal/core/ports"
	"creator-payout-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var otpFormatRe = regexp.MustCompile(`^[0-9]{6}$`)

// OTPConfig tunes one-time code issuance and verification.
type OTPConfig struct {
	TTL            time.Duration // Code validity from issuance
	ResendCooldown time.Duration // Minimum gap between issuances
	MaxAttempts    int           // Wrong guesses before the code is burned
	ProofWindow    time.Duration // Validity of a verified code for PIN recovery
}

// OTPServiceImpl implements ports.OTPService.
type OTPServiceImpl struct {
	accountRepo ports.AccountRepository
	codeRepo    ports.OneTimeCodeRepository
	hashSvc     ports.HashService
	lockout     ports.LockoutStore
	tokenSvc    ports.TokenService
	notifier    ports.Notifier
	transactor  ports.DBTransactor
	cfg         OTPConfig
	log         zerolog.Logger
}

// NewOTPService creates a new OTPServiceImpl.
func NewOTPService(
	accountRepo ports.AccountRepository,
	codeRepo ports.OneTimeCodeRepository,
	hashSvc ports.HashService,
	lockout ports.LockoutStore,
	tokenSvc ports.TokenService,
	notifier ports.Notifier,
	transactor ports.DBTransactor,
	cfg OTPConfig,
	log zerolog.Logger,
) *OTPServiceImpl {
	return &OTPServiceImpl{
		accountRepo: accountRepo,
		codeRepo:    codeRepo,
		hashSvc:     hashSvc,
		lockout:     lockout,
		tokenSvc:    tokenSvc,
		notifier:    notifier,
		transactor:  transactor,
		cfg:         cfg,
		log:         log,
	}
}

// generateCode draws a uniformly random 6-digit code from crypto/rand.
func generateCode() (string, error) {
	// 100000..999999 inclusive
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("drawing random code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// SendOTP issues a fresh one-time code, invalidating any prior unused
// codes in the same transaction so at most one code is ever live.
// The plaintext code travels only through the notification collaborator.
func (s *OTPServiceImpl) SendOTP(ctx context.Context, accountID uuid.UUID) (*ports.OTPSendResult, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}

	now := time.Now().UTC()

	// Resend cooldown, distinct from the verification lockout.
	latest, err := s.codeRepo.GetLatestActive(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get latest code: %w", err))
	}
	if latest != nil {
		if age := now.Sub(latest.CreatedAt); age < s.cfg.ResendCooldown {
			wait := int((s.cfg.ResendCooldown - age).Seconds())
			if wait < 1 {
				wait = 1
			}
			return nil, apperror.ErrOTPCooldown(wait)
		}
	}

	code, err := generateCode()
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	codeHash, err := s.hashSvc.Hash(code)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash code: %w", err))
	}

	record := &domain.OneTimeCode{
		ID:        uuid.New(),
		AccountID: accountID,
		CodeHash:  codeHash,
		Attempts:  0,
		Used:      false,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}

	// Invalidation and issuance commit together so a concurrent verify
	// can never observe two live codes.
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.codeRepo.InvalidateActive(ctx, dbTx, accountID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("invalidate prior codes: %w", err))
	}
	if err := s.codeRepo.Create(ctx, dbTx, record); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create code: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Dispatch is best-effort; the persisted code stands either way.
	expiresIn := int(s.cfg.TTL.Seconds())
	if err := s.notifier.Send(ctx, domain.Notification{
		AccountID: accountID,
		Type:      domain.NotifyWithdrawalOTP,
		Data: map[string]string{
			"code":       code,
			"expires_in": fmt.Sprintf("%d", expiresIn),
		},
	}); err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID.String()).Msg("OTP notification dispatch failed")
	}

	s.log.Info().Str("account_id", accountID.String()).Msg("OTP issued")
	return &ports.OTPSendResult{ExpiresInSeconds: expiresIn}, nil
}

// VerifyOTP checks a code against the latest live one with both lockout
// and per-code attempt accounting. Success retires the code and mints a
// step-up proof for withdrawal submission.
func (s *OTPServiceImpl) VerifyOTP(ctx context.Context, accountID uuid.UUID, code string) (*ports.StepUpGrant, error) {
	if !otpFormatRe.MatchString(code) {
		return nil, apperror.ErrInvalidOTPFormat()
	}

	status, err := s.lockout.Check(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lockout check: %w", err))
	}
	if !status.Allowed {
		return nil, apperror.ErrAccountLocked()
	}

	record, err := s.codeRepo.GetLatestActive(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get latest code: %w", err))
	}
	if record == nil {
		return nil, apperror.ErrNoValidCode()
	}

	now := time.Now().UTC()

	// The code burns after too many wrong guesses, even if the next
	// guess would have been right.
	if record.Attempts >= s.cfg.MaxAttempts {
		if err := s.codeRepo.Retire(ctx, record.ID); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("burn code: %w", err))
		}
		return nil, apperror.ErrOTPBurned()
	}

	match, err := s.hashSvc.Verify(code, record.CodeHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify code hash: %w", err))
	}
	if !match {
		attempts, err := s.codeRepo.IncrementAttempts(ctx, record.ID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("increment code attempts: %w", err))
		}
		if _, err := s.lockout.RecordFailure(ctx, accountID); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("record otp failure: %w", err))
		}
		remaining := s.cfg.MaxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		return nil, apperror.ErrWrongOTP(remaining)
	}

	if err := s.codeRepo.MarkVerified(ctx, record.ID, now); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark code used: %w", err))
	}
	if err := s.lockout.Reset(ctx, accountID); err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID.String()).Msg("failed to reset lockout counter")
	}

	token, expiresAt, err := s.tokenSvc.GenerateStepUp(accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate step-up token: %w", err))
	}

	s.log.Info().Str("account_id", accountID.String()).Msg("OTP verified")
	return &ports.StepUpGrant{Token: token, ExpiresAt: expiresAt}, nil
}

// SetPinAfterOTP overwrites the PIN on the strength of a recent
// successful OTP verification. The proof of verification has its own
// validity window on top of the code's TTL.
func (s *OTPServiceImpl) SetPinAfterOTP(ctx context.Context, accountID uuid.UUID, newPin string) error {
	record, err := s.codeRepo.GetLatestUsed(ctx, accountID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get latest used code: %w", err))
	}
	if record == nil || record.UsedAt == nil {
		return apperror.ErrOTPProofExpired()
	}
	if time.Now().UTC().Sub(*record.UsedAt) > s.cfg.ProofWindow {
		return apperror.ErrOTPProofExpired()
	}

	if !pinFormatRe.MatchString(newPin) {
		return apperror.ErrInvalidPinFormat()
	}

	pinHash, err := s.hashSvc.Hash(newPin)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("hash pin: %w", err))
	}
	// Recovery path: overwrites unconditionally, no "already set" check.
	if err := s.accountRepo.SetPin(ctx, accountID, pinHash, time.Now().UTC()); err != nil {
		return apperror.InternalError(fmt.Errorf("store pin: %w", err))
	}

	s.log.Info().Str("account_id", accountID.String()).Msg("withdrawal PIN set after OTP recovery")
	return nil
}
