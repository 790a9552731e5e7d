package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/dealerdesk/dealerdesk-backend/internal/repository"
)

// QuotaExceeded signals that the identifier has used up today's quota. It is
// an expected condition, not an internal error.
type QuotaExceeded struct {
	Identifier   string
	CurrentCount int
	Limit        int
}

func (e *QuotaExceeded) Error() string {
	return fmt.Sprintf("daily interaction limit exceeded: %d/%d for identifier %s",
		e.CurrentCount, e.Limit, e.Identifier)
}

// Limiter enforces a per-identifier daily interaction quota backed by a
// persistent counter store. Check must pass before Record, and Record must
// run exactly once per accepted request - even when the pipeline later fails
// - so repeated failure-triggering requests cannot bypass the quota.
type Limiter struct {
	store repository.RateLimitRepository
	now   func() time.Time
}

// NewLimiter creates a limiter over the given counter store
func NewLimiter(store repository.RateLimitRepository) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// Check fails with *QuotaExceeded when today's count has reached dailyLimit
func (l *Limiter) Check(ctx context.Context, identifier string, dailyLimit int) error {
	count, err := l.store.GetCount(ctx, identifier, l.today())
	if err != nil {
		return fmt.Errorf("rate limit check failed: %w", err)
	}
	if count >= dailyLimit {
		return &QuotaExceeded{Identifier: identifier, CurrentCount: count, Limit: dailyLimit}
	}
	return nil
}

// Record registers one interaction and returns the new count
func (l *Limiter) Record(ctx context.Context, identifier string) (int, error) {
	count, err := l.store.UpsertIncrement(ctx, identifier, l.today())
	if err != nil {
		return 0, fmt.Errorf("failed to record interaction: %w", err)
	}
	return count, nil
}

// Remaining returns how many interactions are left today, never negative
func (l *Limiter) Remaining(ctx context.Context, identifier string, dailyLimit int) (int, error) {
	count, err := l.store.GetCount(ctx, identifier, l.today())
	if err != nil {
		return 0, fmt.Errorf("failed to get remaining interactions: %w", err)
	}
	remaining := dailyLimit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset zeroes today's count; empty identifier resets all identifiers
func (l *Limiter) Reset(ctx context.Context, identifier string) (int64, error) {
	return l.store.Reset(ctx, identifier, l.today())
}

func (l *Limiter) today() time.Time {
	t := l.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
