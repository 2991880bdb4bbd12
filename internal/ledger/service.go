package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/allenday/tacos/internal/domain"
)

// Settings are the per-instance knobs of the ledger. Kept on the
// Service rather than as package state so independently configured
// instances can coexist.
type Settings struct {
	DailyLimit          int
	DefaultHistoryLines int
	MaxHistoryLines     int
}

// Service is the transactional facade over the ledger: it validates
// give requests, enforces the rolling limit, records transactions and
// answers the read queries. It is the only entry point callers use.
type Service struct {
	store    Store
	clock    Clock
	limits   *LimitEvaluator
	agg      *Aggregator
	settings Settings

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(store Store, clock Clock, settings Settings) *Service {
	return &Service{
		store:    store,
		clock:    clock,
		limits:   NewLimitEvaluator(store),
		agg:      NewAggregator(store),
		settings: settings,
		locks:    make(map[string]*sync.Mutex),
	}
}

// giverLock returns the mutex serializing gives from one giver. The
// limit check and the append must not interleave across two concurrent
// gives from the same giver, or both could observe pre-update quota.
func (s *Service) giverLock(giver string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[giver]
	if !ok {
		l = &sync.Mutex{}
		s.locks[giver] = l
	}
	return l
}

// RecordGive validates and records one give-event. It fails with
// ErrSelfGive, ErrInvalidAmount or *LimitExceededError before anything
// is persisted; storage failures surface as *StorageError.
func (s *Service) RecordGive(ctx context.Context, draft domain.TransactionDraft) (*domain.Transaction, error) {
	if draft.Giver == draft.Recipient {
		return nil, ErrSelfGive
	}
	if draft.Amount < 1 {
		return nil, ErrInvalidAmount
	}
	draft.Note = strings.TrimSpace(draft.Note)

	lock := s.giverLock(draft.Giver)
	lock.Lock()
	defer lock.Unlock()

	now := s.clock.Now().UTC()
	given, err := s.limits.ConsumedInWindow(ctx, draft.Giver, now)
	if err != nil {
		return nil, err
	}
	if given+draft.Amount > s.settings.DailyLimit {
		remaining := s.settings.DailyLimit - given
		if remaining < 0 {
			remaining = 0
		}
		return nil, &LimitExceededError{Given: given, Remaining: remaining, Limit: s.settings.DailyLimit}
	}

	return s.store.Append(ctx, draft)
}

// GetLeaderboard returns up to topN users ranked by total received.
func (s *Service) GetLeaderboard(ctx context.Context, topN int) ([]domain.LeaderboardEntry, error) {
	return s.agg.Leaderboard(ctx, topN)
}

// GetGivingHistory returns the most recent transactions given by user,
// newest first, at most maxLines entries after clamping.
func (s *Service) GetGivingHistory(ctx context.Context, user string, maxLines int) ([]domain.Transaction, error) {
	maxLines = s.clampLines(maxLines)
	txs, err := s.store.QueryByGiver(ctx, user, time.Time{})
	if err != nil {
		return nil, err
	}
	if len(txs) > maxLines {
		txs = txs[:maxLines]
	}
	return txs, nil
}

// GetReceivingHistory returns the most recent transactions received by
// user, newest first, at most maxLines entries after clamping.
func (s *Service) GetReceivingHistory(ctx context.Context, user string, maxLines int) ([]domain.Transaction, error) {
	return s.store.QueryByRecipient(ctx, user, s.clampLines(maxLines))
}

// GetRecentActivity returns the most recent transactions regardless of
// party, newest first.
func (s *Service) GetRecentActivity(ctx context.Context, maxLines int) ([]domain.Transaction, error) {
	return s.store.RecentAll(ctx, s.clampLines(maxLines))
}

// GetRemaining reports how many units user may still give right now. A
// user with no transactions has the full daily limit.
func (s *Service) GetRemaining(ctx context.Context, user string) (int, error) {
	return s.limits.RemainingQuota(ctx, user, s.clock.Now().UTC(), s.settings.DailyLimit)
}

// DailyLimit exposes the configured limit for callers composing
// messages around query results.
func (s *Service) DailyLimit() int { return s.settings.DailyLimit }

func (s *Service) clampLines(lines int) int {
	if lines < 1 {
		return s.settings.DefaultHistoryLines
	}
	if lines > s.settings.MaxHistoryLines {
		return s.settings.MaxHistoryLines
	}
	return lines
}
