package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"creator-payout-service/internal/core/ports"
	"creator-payout-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var pinFormatRe = regexp.MustCompile(`^[0-9]{6}$`)

// PinServiceImpl implements ports.PinService.
type PinServiceImpl struct {
	accountRepo ports.AccountRepository
	hashSvc     ports.HashService
	lockout     ports.LockoutStore
	maxAttempts int
	log         zerolog.Logger
}

// NewPinService creates a new PinServiceImpl. maxAttempts is the lockout
// threshold shared with the lockout store.
func NewPinService(
	accountRepo ports.AccountRepository,
	hashSvc ports.HashService,
	lockout ports.LockoutStore,
	maxAttempts int,
	log zerolog.Logger,
) *PinServiceImpl {
	return &PinServiceImpl{
		accountRepo: accountRepo,
		hashSvc:     hashSvc,
		lockout:     lockout,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// SetPin sets the withdrawal PIN for an account that has none.
// Accounts with an existing PIN must use ChangePin or OTP recovery.
func (s *PinServiceImpl) SetPin(ctx context.Context, accountID uuid.UUID, pin string) error {
	if !pinFormatRe.MatchString(pin) {
		return apperror.ErrInvalidPinFormat()
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return apperror.ErrNotFound("account")
	}
	if account.HasPin() {
		return apperror.ErrPinAlreadySet()
	}

	return s.storePin(ctx, accountID, pin)
}

// VerifyPin checks the PIN against the stored hash with full lockout
// accounting. A locked account is always reported distinctly from a
// wrong PIN.
func (s *PinServiceImpl) VerifyPin(ctx context.Context, accountID uuid.UUID, pin string) error {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return apperror.ErrNotFound("account")
	}
	if !account.HasPin() {
		return apperror.ErrNoPinSet()
	}

	status, err := s.lockout.Check(ctx, accountID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lockout check: %w", err))
	}
	if !status.Allowed {
		return apperror.ErrAccountLocked()
	}

	match, err := s.hashSvc.Verify(pin, *account.PinHash)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("verify pin hash: %w", err))
	}
	if !match {
		attempts, err := s.lockout.RecordFailure(ctx, accountID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("record pin failure: %w", err))
		}
		remaining := s.maxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		return apperror.ErrWrongPin(remaining)
	}

	// A stale counter would expire on its own; a reset failure must not
	// turn a successful verification into an error.
	if err := s.lockout.Reset(ctx, accountID); err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID.String()).Msg("failed to reset lockout counter")
	}
	return nil
}

// ChangePin replaces the PIN after verifying the old one with the same
// lockout accounting as VerifyPin.
func (s *PinServiceImpl) ChangePin(ctx context.Context, accountID uuid.UUID, oldPin, newPin string) error {
	if err := s.VerifyPin(ctx, accountID, oldPin); err != nil {
		return err
	}
	if !pinFormatRe.MatchString(newPin) {
		return apperror.ErrInvalidPinFormat()
	}
	return s.storePin(ctx, accountID, newPin)
}

func (s *PinServiceImpl) storePin(ctx context.Context, accountID uuid.UUID, pin string) error {
	pinHash, err := s.hashSvc.Hash(pin)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("hash pin: %w", err))
	}
	if err := s.accountRepo.SetPin(ctx, accountID, pinHash, time.Now().UTC()); err != nil {
		return apperror.InternalError(fmt.Errorf("store pin: %w", err))
	}

	s.log.Info().Str("account_id", accountID.String()).Msg("withdrawal PIN updated")
	return nil
}
