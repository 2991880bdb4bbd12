package store

import (
	"context"
	"sync"
	"time"

	"github.com/allenday/tacos/internal/domain"
	"github.com/allenday/tacos/internal/ledger"
)

// MemoryStore keeps the ledger in process memory. It backs local
// development runs without a database and the package tests; semantics
// match PostgresStore exactly.
type MemoryStore struct {
	clock ledger.Clock

	mu     sync.RWMutex
	nextID int64
	txs    []domain.Transaction
}

func NewMemoryStore(clock ledger.Clock) *MemoryStore {
	return &MemoryStore{clock: clock, nextID: 1}
}

func (s *MemoryStore) Append(ctx context.Context, draft domain.TransactionDraft) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := domain.Transaction{
		ID:            s.nextID,
		Giver:         draft.Giver,
		Recipient:     draft.Recipient,
		Amount:        draft.Amount,
		Note:          draft.Note,
		RecordedAt:    s.clock.Now().UTC(),
		SourceChannel: draft.SourceChannel,
	}
	s.nextID++
	s.txs = append(s.txs, tx)
	return &tx, nil
}

func (s *MemoryStore) QueryByGiver(ctx context.Context, user string, since time.Time) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for i := len(s.txs) - 1; i >= 0; i-- {
		tx := s.txs[i]
		if tx.Giver == user && !tx.RecordedAt.Before(since) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *MemoryStore) QueryByRecipient(ctx context.Context, user string, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for i := len(s.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.txs[i].Recipient == user {
			out = append(out, s.txs[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) SumReceivedPerUser(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]int)
	for _, tx := range s.txs {
		totals[tx.Recipient] += tx.Amount
	}
	return totals, nil
}

func (s *MemoryStore) RecentAll(ctx context.Context, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for i := len(s.txs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.txs[i])
	}
	return out, nil
}
