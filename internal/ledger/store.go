package ledger

import (
	"context"
	"time"

	"github.com/allenday/tacos/internal/domain"
)

// Store is the durable, append-only transaction ledger. Reads are pure
// and reflect every previously completed Append.
type Store interface {
	// Append assigns the ID and RecordedAt timestamp, persists the
	// record atomically and returns it. No partial writes are ever
	// visible; a failed Append persisted nothing.
	Append(ctx context.Context, draft domain.TransactionDraft) (*domain.Transaction, error)

	// QueryByGiver returns transactions given by user with
	// RecordedAt >= since, newest first. A zero since means no bound.
	QueryByGiver(ctx context.Context, user string, since time.Time) ([]domain.Transaction, error)

	// QueryByRecipient returns the most recent limit transactions
	// received by user, newest first.
	QueryByRecipient(ctx context.Context, user string, limit int) ([]domain.Transaction, error)

	// SumReceivedPerUser totals received amounts across all time for
	// every recipient present in the ledger.
	SumReceivedPerUser(ctx context.Context) (map[string]int, error)

	// RecentAll returns the most recent limit transactions regardless
	// of party, newest first.
	RecentAll(ctx context.Context, limit int) ([]domain.Transaction, error)
}
