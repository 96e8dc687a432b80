package redis

import (
	"context"
	"fmt"
	"time"

	"creator-payout-service/internal/core/ports"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// LockoutStore implements ports.LockoutStore with per-account failure
// counters in Redis. The counter is shared across service instances and
// survives restarts; the TTL is refreshed on every failure so the
// lockout window rolls from the last failed attempt.
type LockoutStore struct {
	client      *goredis.Client
	prefix      string
	maxAttempts int
	window      time.Duration
}

// NewLockoutStore creates a new Redis-backed lockout store.
func NewLockoutStore(client *goredis.Client, maxAttempts int, window time.Duration) *LockoutStore {
	return &LockoutStore{
		client:      client,
		prefix:      "lockout:",
		maxAttempts: maxAttempts,
		window:      window,
	}
}

func (s *LockoutStore) key(accountID uuid.UUID) string {
	return s.prefix + accountID.String()
}

// Check reports whether the account may attempt a verification. A
// missing or expired key means a fresh window.
func (s *LockoutStore) Check(ctx context.Context, accountID uuid.UUID) (*ports.LockoutStatus, error) {
	attempts, err := s.client.Get(ctx, s.key(accountID)).Int()
	if err != nil {
		if err == goredis.Nil {
			return &ports.LockoutStatus{Allowed: true, Remaining: s.maxAttempts}, nil
		}
		return nil, fmt.Errorf("redis lockout get: %w", err)
	}

	if attempts >= s.maxAttempts {
		return &ports.LockoutStatus{Allowed: false, Remaining: 0}, nil
	}
	return &ports.LockoutStatus{Allowed: true, Remaining: s.maxAttempts - attempts}, nil
}

// RecordFailure atomically increments the counter and refreshes the
// window. Two concurrent wrong guesses each see their own count, so the
// threshold cannot be skipped over.
func (s *LockoutStore) RecordFailure(ctx context.Context, accountID uuid.UUID) (int, error) {
	key := s.key(accountID)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis lockout incr: %w", err)
	}

	return int(incr.Val()), nil
}

// Reset clears the counter after a successful verification.
func (s *LockoutStore) Reset(ctx context.Context, accountID uuid.UUID) error {
	if err := s.client.Del(ctx, s.key(accountID)).Err(); err != nil {
		return fmt.Errorf("redis lockout del: %w", err)
	}
	return nil
}
