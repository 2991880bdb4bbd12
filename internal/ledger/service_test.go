package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/allenday/tacos/internal/domain"
	"github.com/allenday/tacos/internal/ledger"
	"github.com/allenday/tacos/internal/store"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(clock ledger.Clock, dailyLimit int) (*ledger.Service, *store.MemoryStore) {
	st := store.NewMemoryStore(clock)
	svc := ledger.NewService(st, clock, ledger.Settings{
		DailyLimit:          dailyLimit,
		DefaultHistoryLines: 10,
		MaxHistoryLines:     50,
	})
	return svc, st
}

func give(t *testing.T, svc *ledger.Service, giver, recipient string, amount int) *domain.Transaction {
	t.Helper()
	tx, err := svc.RecordGive(context.Background(), domain.TransactionDraft{
		Giver:     giver,
		Recipient: recipient,
		Amount:    amount,
		Note:      "test give",
	})
	if err != nil {
		t.Fatalf("RecordGive(%s -> %s, %d): %v", giver, recipient, amount, err)
	}
	return tx
}

func TestRecordGiveRejectsSelfGive(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(newFakeClock(t0), 5)

	_, err := svc.RecordGive(context.Background(), domain.TransactionDraft{
		Giver: "alice", Recipient: "alice", Amount: 1,
	})
	if !errors.Is(err, ledger.ErrSelfGive) {
		t.Fatalf("RecordGive self-give: got %v, want ErrSelfGive", err)
	}

	txs, err := svc.GetGivingHistory(context.Background(), "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 0 {
		t.Errorf("rejected give was persisted: %v", txs)
	}
}

func TestRecordGiveRejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(newFakeClock(t0), 5)

	for _, amount := range []int{0, -1} {
		_, err := svc.RecordGive(context.Background(), domain.TransactionDraft{
			Giver: "alice", Recipient: "bob", Amount: amount,
		})
		if !errors.Is(err, ledger.ErrInvalidAmount) {
			t.Errorf("RecordGive(amount=%d): got %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestRecordGiveEnforcesRollingLimit(t *testing.T) {
	t.Parallel()
	clock := newFakeClock(t0)
	svc, _ := newTestService(clock, 5)

	give(t, svc, "alice", "bob", 3)
	clock.Advance(time.Hour)

	_, err := svc.RecordGive(context.Background(), domain.TransactionDraft{
		Giver: "alice", Recipient: "carol", Amount: 3,
	})
	var limitErr *ledger.LimitExceededError
	if !errors.As(err, &limitErr) {
		t.Fatalf("second give: got %v, want LimitExceededError", err)
	}
	if limitErr.Remaining != 2 {
		t.Errorf("remaining: got %d, want 2", limitErr.Remaining)
	}
	if limitErr.Given != 3 {
		t.Errorf("given: got %d, want 3", limitErr.Given)
	}

	// The exact remaining amount still fits whole.
	give(t, svc, "alice", "carol", 2)

	remaining, err := svc.GetRemaining(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 0 {
		t.Errorf("remaining after limit reached: got %d, want 0", remaining)
	}
}

func TestQuotaRecoversAsTransactionsExpire(t *testing.T) {
	t.Parallel()
	clock := newFakeClock(t0)
	svc, _ := newTestService(clock, 5)

	give(t, svc, "alice", "bob", 3)
	clock.Advance(time.Hour)
	give(t, svc, "alice", "carol", 2)

	remaining, _ := svc.GetRemaining(context.Background(), "alice")
	if remaining != 0 {
		t.Fatalf("remaining at t0+1h: got %d, want 0", remaining)
	}

	// 24h1m after the first give: the 3-unit give has expired, the
	// 2-unit give still counts.
	clock.Advance(23*time.Hour + time.Minute)
	remaining, _ = svc.GetRemaining(context.Background(), "alice")
	if remaining != 3 {
		t.Errorf("remaining at t0+24h+1m: got %d, want 3", remaining)
	}

	// Past both windows the full quota is back, with no calendar reset
	// involved.
	clock.Advance(time.Hour)
	remaining, _ = svc.GetRemaining(context.Background(), "alice")
	if remaining != 5 {
		t.Errorf("remaining at t0+25h+1m: got %d, want 5", remaining)
	}
}

func TestRecordGiveConcurrentSameGiver(t *testing.T) {
	t.Parallel()
	clock := newFakeClock(t0)
	svc, _ := newTestService(clock, 5)

	const attempts = 20
	var wg sync.WaitGroup
	var successes int64
	var mu sync.Mutex

	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.RecordGive(context.Background(), domain.TransactionDraft{
				Giver: "alice", Recipient: "bob", Amount: 1,
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			var limitErr *ledger.LimitExceededError
			if !errors.As(err, &limitErr) {
				t.Errorf("unexpected error under concurrency: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 5 {
		t.Errorf("concurrent gives recorded: got %d, want 5", successes)
	}
	remaining, _ := svc.GetRemaining(context.Background(), "alice")
	if remaining != 0 {
		t.Errorf("remaining after concurrent gives: got %d, want 0", remaining)
	}
}

func TestGivingHistoryClampsToHardCap(t *testing.T) {
	t.Parallel()
	clock := newFakeClock(t0)
	svc, _ := newTestService(clock, 1000)

	for i := 0; i < 60; i++ {
		give(t, svc, "alice", "bob", 1)
		clock.Advance(time.Minute)
	}

	txs, err := svc.GetGivingHistory(context.Background(), "alice", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 50 {
		t.Fatalf("history length with lines=100: got %d, want 50", len(txs))
	}
	// Newest first: the latest append leads.
	if txs[0].ID <= txs[1].ID {
		t.Errorf("history not newest-first: ids %d, %d", txs[0].ID, txs[1].ID)
	}

	txs, err = svc.GetGivingHistory(context.Background(), "alice", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 10 {
		t.Errorf("history length with lines=0: got %d, want default 10", len(txs))
	}
}

func TestReceivingHistoryNewestFirst(t *testing.T) {
	t.Parallel()
	clock := newFakeClock(t0)
	svc, _ := newTestService(clock, 100)

	give(t, svc, "alice", "bob", 1)
	clock.Advance(time.Minute)
	give(t, svc, "carol", "bob", 2)
	clock.Advance(time.Minute)
	give(t, svc, "dave", "eve", 4)

	txs, err := svc.GetReceivingHistory(context.Background(), "bob", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 2 {
		t.Fatalf("receiving history length: got %d, want 2", len(txs))
	}
	if txs[0].Giver != "carol" || txs[1].Giver != "alice" {
		t.Errorf("receiving history order: got givers %s, %s; want carol, alice", txs[0].Giver, txs[1].Giver)
	}
}

func TestRecordGiveRoundTrip(t *testing.T) {
	t.Parallel()
	clock := newFakeClock(t0)
	svc, _ := newTestService(clock, 5)

	recorded, err := svc.RecordGive(context.Background(), domain.TransactionDraft{
		Giver:         "alice",
		Recipient:     "bob",
		Amount:        2,
		Note:          "great presentation!",
		SourceChannel: "C123",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !recorded.RecordedAt.Equal(t0) {
		t.Errorf("RecordedAt: got %v, want %v", recorded.RecordedAt, t0)
	}

	given, err := svc.GetGivingHistory(context.Background(), "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(given) != 1 {
		t.Fatalf("giving history length: got %d, want 1", len(given))
	}
	if given[0] != *recorded {
		t.Errorf("giving history entry: got %+v, want %+v", given[0], *recorded)
	}

	received, err := svc.GetReceivingHistory(context.Background(), "bob", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(received) != 1 || received[0] != *recorded {
		t.Errorf("receiving history entry: got %+v, want %+v", received, *recorded)
	}
}

func TestGetRemainingUnknownUser(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(newFakeClock(t0), 5)

	remaining, err := svc.GetRemaining(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetRemaining for unknown user: %v", err)
	}
	if remaining != 5 {
		t.Errorf("remaining for unknown user: got %d, want 5", remaining)
	}
}

// failingStore simulates a broken backend for error propagation.
type failingStore struct {
	ledger.Store
}

func (failingStore) QueryByGiver(ctx context.Context, user string, since time.Time) ([]domain.Transaction, error) {
	return nil, &ledger.StorageError{Op: "query by giver", Err: errors.New("connection refused")}
}

func TestRecordGivePropagatesStorageError(t *testing.T) {
	t.Parallel()
	svc := ledger.NewService(failingStore{}, newFakeClock(t0), ledger.Settings{
		DailyLimit:          5,
		DefaultHistoryLines: 10,
		MaxHistoryLines:     50,
	})

	_, err := svc.RecordGive(context.Background(), domain.TransactionDraft{
		Giver: "alice", Recipient: "bob", Amount: 1,
	})
	var storageErr *ledger.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("RecordGive with broken store: got %v, want StorageError", err)
	}
}
