package ledger

import (
	"context"
	"sort"

	"github.com/allenday/tacos/internal/domain"
)

// Aggregator derives ranked views from the full transaction set. There
// is no materialized state; every call recomputes from the ledger.
type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Leaderboard ranks users by total received, descending, truncated to
// topN. Equal totals order by user identifier ascending so the ranking
// is deterministic across backends and replays.
func (a *Aggregator) Leaderboard(ctx context.Context, topN int) ([]domain.LeaderboardEntry, error) {
	totals, err := a.store.SumReceivedPerUser(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(totals))
	for user, total := range totals {
		entries = append(entries, domain.LeaderboardEntry{User: user, TotalReceived: total})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalReceived != entries[j].TotalReceived {
			return entries[i].TotalReceived > entries[j].TotalReceived
		}
		return entries[i].User < entries[j].User
	})

	if topN >= 0 && len(entries) > topN {
		entries = entries[:topN]
	}
	return entries, nil
}
