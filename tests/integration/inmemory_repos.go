package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"creator-payout-service/internal/core/domain"
	"creator-payout-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *inMemoryAccountRepo) seed(a *domain.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.ID] = a
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (r *inMemoryAccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryAccountRepo) SetPin(ctx context.Context, id uuid.UUID, pinHash string, setAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return fmt.Errorf("account not found")
	}
	a.PinHash = &pinHash
	a.PinSetAt = &setAt
	a.UpdatedAt = setAt
	return nil
}

func (r *inMemoryAccountRepo) DeductEarnings(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return 0, fmt.Errorf("account not found")
	}
	a.TotalReceived -= amount
	if a.TotalReceived < 0 {
		a.TotalReceived = 0
	}
	return a.TotalReceived, nil
}

func (r *inMemoryAccountRepo) DeductTokenBalance(ctx context.Context, id uuid.UUID, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return fmt.Errorf("account not found")
	}
	a.TokenBalance -= amount
	if a.TokenBalance < 0 {
		a.TokenBalance = 0
	}
	return nil
}

// --- In-Memory One-Time Code Repo ---

type inMemoryCodeRepo struct {
	mu    sync.RWMutex
	codes map[uuid.UUID]*domain.OneTimeCode
}

func newInMemoryCodeRepo() *inMemoryCodeRepo {
	return &inMemoryCodeRepo{codes: make(map[uuid.UUID]*domain.OneTimeCode)}
}

func (r *inMemoryCodeRepo) Create(ctx context.Context, tx pgx.Tx, code *domain.OneTimeCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *code
	r.codes[code.ID] = &copied
	return nil
}

func (r *inMemoryCodeRepo) GetLatestActive(ctx context.Context, accountID uuid.UUID) (*domain.OneTimeCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *domain.OneTimeCode
	now := time.Now().UTC()
	for _, c := range r.codes {
		if c.AccountID != accountID || !c.IsLive(now) {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (r *inMemoryCodeRepo) GetLatestUsed(ctx context.Context, accountID uuid.UUID) (*domain.OneTimeCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *domain.OneTimeCode
	for _, c := range r.codes {
		if c.AccountID != accountID || !c.Used || c.UsedAt == nil {
			continue
		}
		if latest == nil || c.UsedAt.After(*latest.UsedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (r *inMemoryCodeRepo) InvalidateActive(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.AccountID == accountID && !c.Used {
			c.Used = true
		}
	}
	return nil
}

func (r *inMemoryCodeRepo) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok {
		return 0, fmt.Errorf("code not found")
	}
	c.Attempts++
	return c.Attempts, nil
}

func (r *inMemoryCodeRepo) MarkVerified(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok {
		return fmt.Errorf("code not found")
	}
	c.Used = true
	c.UsedAt = &usedAt
	return nil
}

func (r *inMemoryCodeRepo) Retire(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok {
		return fmt.Errorf("code not found")
	}
	c.Used = true
	return nil
}

// activeCount reports live codes for invariant checks.
func (r *inMemoryCodeRepo) activeCount(accountID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	now := time.Now().UTC()
	for _, c := range r.codes {
		if c.AccountID == accountID && c.IsLive(now) {
			count++
		}
	}
	return count
}

// --- In-Memory Withdrawal Repo ---

type inMemoryWithdrawalRepo struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*domain.WithdrawalRequest
}

func newInMemoryWithdrawalRepo() *inMemoryWithdrawalRepo {
	return &inMemoryWithdrawalRepo{requests: make(map[uuid.UUID]*domain.WithdrawalRequest)}
}

func (r *inMemoryWithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.WithdrawalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *w
	r.requests[w.ID] = &copied
	return nil
}

func (r *inMemoryWithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	copied := *w
	return &copied, nil
}

func (r *inMemoryWithdrawalRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.WithdrawalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WithdrawalRequest
	for _, w := range r.requests {
		if w.AccountID == accountID {
			result = append(result, *w)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *inMemoryWithdrawalRepo) List(ctx context.Context, params ports.WithdrawalListParams) ([]domain.WithdrawalRequest, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WithdrawalRequest
	for _, w := range r.requests {
		if params.Status != nil && w.Status != *params.Status {
			continue
		}
		result = append(result, *w)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.WithdrawalRequest{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *inMemoryWithdrawalRepo) SumOpenAmount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum int64
	for _, w := range r.requests {
		if w.AccountID == accountID && w.IsOpen() {
			sum += w.Amount
		}
	}
	return sum, nil
}

func (r *inMemoryWithdrawalRepo) SumOpenAmountTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	return r.SumOpenAmount(ctx, accountID)
}

func (r *inMemoryWithdrawalRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.WithdrawalStatus, notes *string, processedAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.requests[id]
	if !ok || w.Status != from {
		return false, nil
	}
	w.Status = to
	if notes != nil {
		w.Notes = notes
	}
	if processedAt != nil {
		w.ProcessedAt = processedAt
	}
	return true, nil
}

// --- Capture Notifier ---

// captureNotifier records notifications so tests can read OTP codes that
// would otherwise only travel out-of-band.
type captureNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{}
}

func (n *captureNotifier) Send(ctx context.Context, notification domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return nil
}

// lastOTP returns the most recent OTP code dispatched for the account.
func (n *captureNotifier) lastOTP(accountID uuid.UUID) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].AccountID == accountID && n.sent[i].Type == domain.NotifyWithdrawalOTP {
			return n.sent[i].Data["code"]
		}
	}
	return ""
}

// typesFor lists the notification types dispatched for the account in order.
func (n *captureNotifier) typesFor(accountID uuid.UUID) []domain.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()
	var types []domain.NotificationType
	for _, sent := range n.sent {
		if sent.AccountID == accountID {
			types = append(types, sent.Type)
		}
	}
	return types
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
