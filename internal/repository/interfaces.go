package repository

import (
	"context"
	"time"
)

// RateLimitRecord is one (identifier, date) counter row
type RateLimitRecord struct {
	Identifier        string     `db:"identifier" json:"identifier"`
	Date              time.Time  `db:"date" json:"date"`
	InteractionCount  int        `db:"interaction_count" json:"interaction_count"`
	LastInteractionAt *time.Time `db:"last_interaction_at" json:"last_interaction_at"`
}

// RateLimitRepository is the persistent counter store behind the rate
// limiter. At most one record exists per (identifier, date).
type RateLimitRepository interface {
	// GetCount returns today's interaction count for the identifier, 0 when
	// no record exists.
	GetCount(ctx context.Context, identifier string, date time.Time) (int, error)

	// UpsertIncrement atomically creates or increments the (identifier, date)
	// record and returns the new count.
	UpsertIncrement(ctx context.Context, identifier string, date time.Time) (int, error)

	// Reset zeroes the count for the given date. An empty identifier resets
	// every identifier for that date. Returns the number of affected rows.
	Reset(ctx context.Context, identifier string, date time.Time) (int64, error)

	// List returns counter records, optionally filtered to one date.
	List(ctx context.Context, dateFilter *time.Time) ([]RateLimitRecord, error)
}
