package domain

import "time"

// Transaction is the immutable record of one give-event. Once appended
// it is never mutated or deleted; every balance and view is recomputed
// from these records.
type Transaction struct {
	ID            int64     `json:"id"`
	Giver         string    `json:"giver"`
	Recipient     string    `json:"recipient"`
	Amount        int       `json:"amount"`
	Note          string    `json:"note"`
	RecordedAt    time.Time `json:"recorded_at"`
	SourceChannel string    `json:"source_channel,omitempty"`
}

// TransactionDraft carries the caller-supplied fields of a give. The
// store assigns ID and RecordedAt on append.
type TransactionDraft struct {
	Giver         string `json:"giver"`
	Recipient     string `json:"recipient"`
	Amount        int    `json:"amount"`
	Note          string `json:"note"`
	SourceChannel string `json:"source_channel"`
}

// LeaderboardEntry is one ranked row of the received-totals view.
type LeaderboardEntry struct {
	User          string `json:"user"`
	TotalReceived int    `json:"total_received"`
}
