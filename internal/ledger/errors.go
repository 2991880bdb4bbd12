package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrSelfGive      = errors.New("cannot give to yourself")
	ErrInvalidAmount = errors.New("amount must be a positive whole number")
)

// LimitExceededError rejects a give whose prospective total would
// overshoot the rolling 24h limit. Remaining is what the giver could
// still give right now, floored at zero.
type LimitExceededError struct {
	Given     int
	Remaining int
	Limit     int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("daily limit exceeded: %d given in the last 24h, %d of %d remaining", e.Given, e.Remaining, e.Limit)
}

// StorageError wraps a failure of the durable store. A failed append
// guarantees no record was persisted.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
