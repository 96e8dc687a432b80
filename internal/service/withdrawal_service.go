package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"creator-payout-service/internal/core/domain"
	"creator-payout-service/internal/core/ports"
	"creator-payout-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const notifyTimeout = 5 * time.Second

// WithdrawalServiceImpl implements ports.WithdrawalService.
type WithdrawalServiceImpl struct {
	accountRepo ports.AccountRepository
	wdRepo      ports.WithdrawalRepository
	tokenSvc    ports.TokenService
	notifier    ports.Notifier
	transactor  ports.DBTransactor
	feeModel    domain.FeeModel
	log         zerolog.Logger
}

// NewWithdrawalService creates a new WithdrawalServiceImpl.
func NewWithdrawalService(
	accountRepo ports.AccountRepository,
	wdRepo ports.WithdrawalRepository,
	tokenSvc ports.TokenService,
	notifier ports.Notifier,
	transactor ports.DBTransactor,
	feeModel domain.FeeModel,
	log zerolog.Logger,
) *WithdrawalServiceImpl {
	return &WithdrawalServiceImpl{
		accountRepo: accountRepo,
		wdRepo:      wdRepo,
		tokenSvc:    tokenSvc,
		notifier:    notifier,
		transactor:  transactor,
		feeModel:    feeModel,
		log:         log,
	}
}

// Submit creates a PENDING withdrawal request. It requires a set PIN and
// a step-up proof from a just-completed OTP verification, and validates
// the amount against the available balance inside the same transaction
// that inserts the request.
func (s *WithdrawalServiceImpl) Submit(ctx context.Context, req ports.SubmitWithdrawalRequest) (*domain.WithdrawalRequest, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	account, err := s.accountRepo.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	if !account.HasPin() {
		return nil, apperror.ErrNoPinSet()
	}

	if err := s.tokenSvc.ValidateStepUp(req.StepUpToken, req.AccountID); err != nil {
		return nil, apperror.ErrInvalidToken()
	}

	// Lock the account row and recompute the balance from rows visible
	// to this transaction, so two concurrent submissions cannot both
	// pass the check against a stale balance.
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	locked, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, req.AccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if locked == nil {
		return nil, apperror.ErrNotFound("account")
	}

	hold, err := s.wdRepo.SumOpenAmountTx(ctx, dbTx, req.AccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum open requests: %w", err))
	}

	available := availableFromHold(locked.TotalReceived, s.feeModel, hold)
	if req.Amount > available {
		return nil, apperror.ErrInsufficientBalance()
	}

	request := &domain.WithdrawalRequest{
		ID:            uuid.New(),
		AccountID:     req.AccountID,
		Amount:        req.Amount,
		PayoutMethod:  req.PayoutMethod,
		PayoutDetails: req.PayoutDetails,
		Status:        domain.WithdrawalStatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.wdRepo.Create(ctx, dbTx, request); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create withdrawal request: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("request_id", request.ID.String()).
		Str("account_id", req.AccountID.String()).
		Int64("amount", req.Amount).
		Str("payout_method", req.PayoutMethod).
		Msg("withdrawal request submitted")

	return request, nil
}

// Approve moves a PENDING request to PROCESSING.
func (s *WithdrawalServiceImpl) Approve(ctx context.Context, requestID uuid.UUID, adminNote string) (*domain.WithdrawalRequest, error) {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	notes := noteOrNil(adminNote)
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	applied, err := s.wdRepo.UpdateStatus(ctx, dbTx, requestID,
		domain.WithdrawalStatusPending, domain.WithdrawalStatusProcessing, notes, nil)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update status: %w", err))
	}
	if !applied {
		return nil, s.transitionConflict(ctx, requestID, domain.WithdrawalStatusProcessing)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	request.Status = domain.WithdrawalStatusProcessing
	request.Notes = notes

	s.dispatch(domain.Notification{
		AccountID: request.AccountID,
		Type:      domain.NotifyWithdrawalProcessing,
		Data: map[string]string{
			"request_id": request.ID.String(),
			"amount":     fmt.Sprintf("%d", request.Amount),
		},
	})

	s.log.Info().Str("request_id", requestID.String()).Msg("withdrawal request approved")
	return request, nil
}

// Reject moves a PENDING request to REJECTED. A note explaining the
// rejection is required and is included in the notification.
func (s *WithdrawalServiceImpl) Reject(ctx context.Context, requestID uuid.UUID, adminNote string) (*domain.WithdrawalRequest, error) {
	if strings.TrimSpace(adminNote) == "" {
		return nil, apperror.ErrNoteRequired()
	}

	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	applied, err := s.wdRepo.UpdateStatus(ctx, dbTx, requestID,
		domain.WithdrawalStatusPending, domain.WithdrawalStatusRejected, &adminNote, &now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update status: %w", err))
	}
	if !applied {
		return nil, s.transitionConflict(ctx, requestID, domain.WithdrawalStatusRejected)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	request.Status = domain.WithdrawalStatusRejected
	request.Notes = &adminNote
	request.ProcessedAt = &now

	s.dispatch(domain.Notification{
		AccountID: request.AccountID,
		Type:      domain.NotifyWithdrawalRejected,
		Data: map[string]string{
			"request_id": request.ID.String(),
			"amount":     fmt.Sprintf("%d", request.Amount),
			"reason":     adminNote,
		},
	})

	s.log.Info().Str("request_id", requestID.String()).Msg("withdrawal request rejected")
	return request, nil
}

// Complete moves a PROCESSING request to COMPLETED and deducts the
// amount from the account's earnings in the same transaction. The
// secondary token ledger is deducted best-effort after commit.
func (s *WithdrawalServiceImpl) Complete(ctx context.Context, requestID uuid.UUID, adminNote string) (*domain.WithdrawalRequest, error) {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	notes := noteOrNil(adminNote)
	now := time.Now().UTC()
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	applied, err := s.wdRepo.UpdateStatus(ctx, dbTx, requestID,
		domain.WithdrawalStatusProcessing, domain.WithdrawalStatusCompleted, notes, &now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update status: %w", err))
	}
	if !applied {
		return nil, s.transitionConflict(ctx, requestID, domain.WithdrawalStatusCompleted)
	}

	newTotal, err := s.accountRepo.DeductEarnings(ctx, dbTx, request.AccountID, request.Amount)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("deduct earnings: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Secondary ledger: the state transition is already committed, so a
	// failure here is logged and never surfaced.
	if err := s.accountRepo.DeductTokenBalance(ctx, request.AccountID, request.Amount); err != nil {
		s.log.Warn().Err(err).
			Str("request_id", requestID.String()).
			Str("account_id", request.AccountID.String()).
			Msg("token balance deduction failed")
	}

	request.Status = domain.WithdrawalStatusCompleted
	request.Notes = notes
	request.ProcessedAt = &now

	s.dispatch(domain.Notification{
		AccountID: request.AccountID,
		Type:      domain.NotifyWithdrawalCompleted,
		Data: map[string]string{
			"request_id": request.ID.String(),
			"amount":     fmt.Sprintf("%d", request.Amount),
		},
	})

	s.log.Info().
		Str("request_id", requestID.String()).
		Int64("amount", request.Amount).
		Int64("new_total_received", newTotal).
		Msg("withdrawal request completed")

	return request, nil
}

// AvailableBalance recomputes the ledger breakdown from current source
// data for display and submission validation.
func (s *WithdrawalServiceImpl) AvailableBalance(ctx context.Context, accountID uuid.UUID) (*ports.BalanceBreakdown, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}

	hold, err := s.wdRepo.SumOpenAmount(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum open requests: %w", err))
	}

	return &ports.BalanceBreakdown{
		TotalReceived: account.TotalReceived,
		Fee:           Fee(s.feeModel, account.TotalReceived),
		OpenHold:      hold,
		Available:     availableFromHold(account.TotalReceived, s.feeModel, hold),
	}, nil
}

// ListByAccount returns the creator's own requests, newest first.
func (s *WithdrawalServiceImpl) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.WithdrawalRequest, error) {
	requests, err := s.wdRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list withdrawals: %w", err))
	}
	return requests, nil
}

// List returns requests for the admin dashboard with filtering and pagination.
func (s *WithdrawalServiceImpl) List(ctx context.Context, params ports.WithdrawalListParams) ([]domain.WithdrawalRequest, int64, error) {
	requests, total, err := s.wdRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list withdrawals: %w", err))
	}
	return requests, total, nil
}

func (s *WithdrawalServiceImpl) getRequest(ctx context.Context, requestID uuid.UUID) (*domain.WithdrawalRequest, error) {
	request, err := s.wdRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get withdrawal request: %w", err))
	}
	if request == nil {
		return nil, apperror.ErrNotFound("withdrawal request")
	}
	return request, nil
}

// transitionConflict reports the losing side of a guarded status update.
func (s *WithdrawalServiceImpl) transitionConflict(ctx context.Context, requestID uuid.UUID, target domain.WithdrawalStatus) error {
	current, err := s.wdRepo.GetByID(ctx, requestID)
	if err != nil || current == nil {
		return apperror.ErrInvalidTransition("unknown", string(target))
	}
	return apperror.ErrInvalidTransition(string(current.Status), string(target))
}

// dispatch sends a notification after the state change has committed.
// It runs on a background context so caller cancellation cannot affect
// delivery of an already-committed transition, and failures are only
// ever logged.
func (s *WithdrawalServiceImpl) dispatch(n domain.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := s.notifier.Send(ctx, n); err != nil {
		s.log.Warn().Err(err).
			Str("account_id", n.AccountID.String()).
			Str("type", string(n.Type)).
			Msg("notification dispatch failed")
	}
}

func noteOrNil(note string) *string {
	if strings.TrimSpace(note) == "" {
		return nil
	}
	return &note
}
