package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrLimitNotConfigured is returned when no feature_limits row exists for a
// (tier, feature, limit type) triple. A missing row is a configuration error,
// not an unlimited grant.
var ErrLimitNotConfigured = errors.New("feature limit not configured")

// LimitRepository reads the static per-tier feature limit configuration.
type LimitRepository interface {
	// GetLimit returns the configured numeric limit. A value of -1 means
	// unlimited.
	GetLimit(ctx context.Context, tier, feature, limitType string) (int64, error)
}

type limitRepo struct {
	pool *pgxpool.Pool
}

// NewLimitRepo creates a new LimitRepository.
func NewLimitRepo(pool *pgxpool.Pool) LimitRepository {
	return &limitRepo{pool: pool}
}

func (r *limitRepo) GetLimit(ctx context.Context, tier, feature, limitType string) (int64, error) {
	const q = `
        SELECT limit_value
        FROM feature_limits
        WHERE tier = $1 AND feature = $2 AND limit_type = $3
    `
	var limit int64
	if err := r.pool.QueryRow(ctx, q, tier, feature, limitType).Scan(&limit); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: tier=%s feature=%s type=%s", ErrLimitNotConfigured, tier, feature, limitType)
		}
		return 0, fmt.Errorf("fetching limit for tier=%s feature=%s: %w", tier, feature, err)
	}
	return limit, nil
}
