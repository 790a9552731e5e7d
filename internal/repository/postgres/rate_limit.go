package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dealerdesk/dealerdesk-backend/internal/repository"
)

// RateLimitRepository implements repository.RateLimitRepository using
// PostgreSQL
type RateLimitRepository struct {
	db *sqlx.DB
}

// NewRateLimitRepository creates a new PostgreSQL rate limit repository
func NewRateLimitRepository(db *sqlx.DB) repository.RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// GetCount returns the interaction count for the identifier on the given date
func (r *RateLimitRepository) GetCount(ctx context.Context, identifier string, date time.Time) (int, error) {
	var count int
	query := `
		SELECT interaction_count FROM rate_limit
		WHERE identifier = $1 AND date = $2
	`
	err := r.db.GetContext(ctx, &count, query, identifier, date.Format("2006-01-02"))
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get interaction count: %w", err)
	}
	return count, nil
}

// UpsertIncrement increments the counter in a single atomic statement so
// concurrent requests cannot lose updates.
func (r *RateLimitRepository) UpsertIncrement(ctx context.Context, identifier string, date time.Time) (int, error) {
	var count int
	query := `
		INSERT INTO rate_limit (identifier, date, interaction_count, last_interaction_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (identifier, date) DO UPDATE SET
			interaction_count = rate_limit.interaction_count + 1,
			last_interaction_at = NOW()
		RETURNING interaction_count
	`
	err := r.db.GetContext(ctx, &count, query, identifier, date.Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("failed to increment interaction count: %w", err)
	}
	return count, nil
}

// Reset zeroes counts for the date; empty identifier means all identifiers
func (r *RateLimitRepository) Reset(ctx context.Context, identifier string, date time.Time) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	if identifier != "" {
		result, err = r.db.ExecContext(ctx,
			`UPDATE rate_limit SET interaction_count = 0 WHERE identifier = $1 AND date = $2`,
			identifier, date.Format("2006-01-02"))
	} else {
		result, err = r.db.ExecContext(ctx,
			`UPDATE rate_limit SET interaction_count = 0 WHERE date = $1`,
			date.Format("2006-01-02"))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to reset interaction counts: %w", err)
	}
	return result.RowsAffected()
}

// List returns counter records, newest date first when unfiltered
func (r *RateLimitRepository) List(ctx context.Context, dateFilter *time.Time) ([]repository.RateLimitRecord, error) {
	var records []repository.RateLimitRecord
	var err error
	if dateFilter != nil {
		query := `
			SELECT identifier, date, interaction_count, last_interaction_at
			FROM rate_limit
			WHERE date = $1
			ORDER BY identifier
		`
		err = r.db.SelectContext(ctx, &records, query, dateFilter.Format("2006-01-02"))
	} else {
		query := `
			SELECT identifier, date, interaction_count, last_interaction_at
			FROM rate_limit
			ORDER BY date DESC, identifier
		`
		err = r.db.SelectContext(ctx, &records, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list rate limit records: %w", err)
	}
	return records, nil
}
