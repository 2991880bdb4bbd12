package ledger

import (
	"context"
	"time"
)

// Window is the sliding interval over which the give limit applies. A
// transaction stops counting against its giver exactly 24 hours after
// it was recorded, so quota recovers continuously rather than resetting
// at midnight.
const Window = 24 * time.Hour

// LimitEvaluator computes consumed and remaining quota over the rolling
// window. It performs no writes.
type LimitEvaluator struct {
	store Store
}

func NewLimitEvaluator(store Store) *LimitEvaluator {
	return &LimitEvaluator{store: store}
}

// ConsumedInWindow sums the amounts user has given in the window ending
// at now.
func (e *LimitEvaluator) ConsumedInWindow(ctx context.Context, user string, now time.Time) (int, error) {
	txs, err := e.store.QueryByGiver(ctx, user, now.Add(-Window))
	if err != nil {
		return 0, err
	}
	total := 0
	for _, tx := range txs {
		total += tx.Amount
	}
	return total, nil
}

// RemainingQuota reports how much user may still give, floored at zero.
func (e *LimitEvaluator) RemainingQuota(ctx context.Context, user string, now time.Time, dailyLimit int) (int, error) {
	given, err := e.ConsumedInWindow(ctx, user, now)
	if err != nil {
		return 0, err
	}
	remaining := dailyLimit - given
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// CanGive reports whether the prospective total after giving amount
// stays within dailyLimit. A give is accepted or rejected whole; it is
// never partially honored against leftover quota.
func (e *LimitEvaluator) CanGive(ctx context.Context, user string, now time.Time, amount, dailyLimit int) (bool, error) {
	given, err := e.ConsumedInWindow(ctx, user, now)
	if err != nil {
		return false, err
	}
	return given+amount <= dailyLimit, nil
}
