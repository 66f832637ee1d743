package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CounterRepository hands out request numbers from per-prefix counters. The
// increment is a single atomic upsert so concurrent creates can never be
// assigned the same number.
type CounterRepository struct {
	db *sqlx.DB
}

// NewCounterRepository constructs a CounterRepository.
func NewCounterRepository(db *sqlx.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// Next reserves and returns the next value of the counter for a prefix.
func (r *CounterRepository) Next(ctx context.Context, prefix string) (int64, error) {
	const query = `INSERT INTO request_counters (prefix, value) VALUES ($1, 1)
        ON CONFLICT (prefix) DO UPDATE SET value = request_counters.value + 1
        RETURNING value`
	var value int64
	if err := r.db.GetContext(ctx, &value, query, prefix); err != nil {
		return 0, fmt.Errorf("next counter %s: %w", prefix, err)
	}
	return value, nil
}
