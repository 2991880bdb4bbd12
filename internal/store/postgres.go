package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/allenday/tacos/internal/domain"
	"github.com/allenday/tacos/internal/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
    id             BIGSERIAL PRIMARY KEY,
    giver          TEXT NOT NULL,
    recipient      TEXT NOT NULL,
    amount         BIGINT NOT NULL CHECK (amount >= 1),
    note           TEXT NOT NULL DEFAULT '',
    recorded_at    TIMESTAMPTZ NOT NULL,
    source_channel TEXT NOT NULL DEFAULT '',
    CHECK (giver <> recipient)
);

CREATE INDEX IF NOT EXISTS idx_transactions_giver_recorded
    ON transactions (giver, recorded_at);
CREATE INDEX IF NOT EXISTS idx_transactions_recipient_recorded
    ON transactions (recipient, recorded_at);
`

// PostgresStore is the durable ledger backend over a pgx pool.
type PostgresStore struct {
	db    *pgxpool.Pool
	clock ledger.Clock
}

// NewPostgresStore connects, pings and returns the store. The clock
// supplies RecordedAt timestamps on append.
func NewPostgresStore(ctx context.Context, connString string, clock ledger.Clock) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresStore{db: pool, clock: clock}, nil
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

// InitSchema creates the transactions table and its indexes if absent.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return &ledger.StorageError{Op: "init schema", Err: err}
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, draft domain.TransactionDraft) (*domain.Transaction, error) {
	tx := domain.Transaction{
		Giver:         draft.Giver,
		Recipient:     draft.Recipient,
		Amount:        draft.Amount,
		Note:          draft.Note,
		RecordedAt:    s.clock.Now().UTC(),
		SourceChannel: draft.SourceChannel,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO transactions (giver, recipient, amount, note, recorded_at, source_channel)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		tx.Giver, tx.Recipient, tx.Amount, tx.Note, tx.RecordedAt, tx.SourceChannel,
	).Scan(&tx.ID)
	if err != nil {
		return nil, &ledger.StorageError{Op: "append transaction", Err: err}
	}
	return &tx, nil
}

func (s *PostgresStore) QueryByGiver(ctx context.Context, user string, since time.Time) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, giver, recipient, amount, note, recorded_at, source_channel
		 FROM transactions
		 WHERE giver = $1 AND recorded_at >= $2
		 ORDER BY recorded_at DESC, id DESC`,
		user, since)
	if err != nil {
		return nil, &ledger.StorageError{Op: "query by giver", Err: err}
	}
	return scanTransactions(rows, "query by giver")
}

func (s *PostgresStore) QueryByRecipient(ctx context.Context, user string, limit int) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, giver, recipient, amount, note, recorded_at, source_channel
		 FROM transactions
		 WHERE recipient = $1
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT $2`,
		user, limit)
	if err != nil {
		return nil, &ledger.StorageError{Op: "query by recipient", Err: err}
	}
	return scanTransactions(rows, "query by recipient")
}

func (s *PostgresStore) SumReceivedPerUser(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.Query(ctx,
		`SELECT recipient, SUM(amount) FROM transactions GROUP BY recipient`)
	if err != nil {
		return nil, &ledger.StorageError{Op: "sum received", Err: err}
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var user string
		var total int
		if err := rows.Scan(&user, &total); err != nil {
			return nil, &ledger.StorageError{Op: "sum received", Err: err}
		}
		totals[user] = total
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.StorageError{Op: "sum received", Err: err}
	}
	return totals, nil
}

func (s *PostgresStore) RecentAll(ctx context.Context, limit int) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, giver, recipient, amount, note, recorded_at, source_channel
		 FROM transactions
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, &ledger.StorageError{Op: "recent all", Err: err}
	}
	return scanTransactions(rows, "recent all")
}

func scanTransactions(rows pgx.Rows, op string) ([]domain.Transaction, error) {
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.Giver, &t.Recipient, &t.Amount, &t.Note, &t.RecordedAt, &t.SourceChannel); err != nil {
			return nil, &ledger.StorageError{Op: op, Err: err}
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.StorageError{Op: op, Err: err}
	}
	return txs, nil
}
