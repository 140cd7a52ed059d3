package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUsageLimitExceeded is returned when an atomic check-and-record would
// push a user past their configured limit.
var ErrUsageLimitExceeded = errors.New("usage_limit_exceeded")

// UsageRepository tracks user actions for usage-based limits.
type UsageRepository interface {
	// SumUsage sums recorded usage counts for a feature since the billing
	// period start. Zero rows sum to zero.
	SumUsage(ctx context.Context, userID, feature string, periodStart time.Time) (int64, error)
	// RecordUsage adds an increment to the user's usage for the period.
	RecordUsage(ctx context.Context, rec *model.UsageRecord) error
	// CheckAndRecordUsage atomically sums usage for the period, compares it
	// against limit, and records increment. A limit below zero skips the
	// comparison (unlimited) but still records. Returns the usage sum prior
	// to the increment, and ErrUsageLimitExceeded when used+increment would
	// exceed the limit.
	CheckAndRecordUsage(ctx context.Context, rec *model.UsageRecord, limit int64) (int64, error)
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

const sumUsageQ = `
    SELECT COALESCE(SUM(count), 0)
    FROM usage_records
    WHERE user_id = $1
      AND feature = $2
      AND period_start >= $3
`

func (r *usageRepo) SumUsage(ctx context.Context, userID, feature string, periodStart time.Time) (int64, error) {
	var used int64
	if err := r.pool.QueryRow(ctx, sumUsageQ, userID, feature, periodStart).Scan(&used); err != nil {
		return 0, fmt.Errorf("summing %s usage for user %s: %w", feature, userID, err)
	}
	return used, nil
}

const insertUsageQ = `
    INSERT INTO usage_records (user_id, feature, usage_type, period_start, count)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (user_id, feature, usage_type, period_start)
    DO UPDATE SET count = usage_records.count + EXCLUDED.count
`

func (r *usageRepo) RecordUsage(ctx context.Context, rec *model.UsageRecord) error {
	_, err := r.pool.Exec(ctx, insertUsageQ, rec.UserID, rec.Feature, rec.UsageType, rec.PeriodStart, rec.Count)
	if err != nil {
		return fmt.Errorf("recording %s usage for user %s: %w", rec.Feature, rec.UserID, err)
	}
	return nil
}

func (r *usageRepo) CheckAndRecordUsage(ctx context.Context, rec *model.UsageRecord, limit int64) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return 0, fmt.Errorf("starting transaction for usage check: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var used int64
	if err := tx.QueryRow(ctx, sumUsageQ, rec.UserID, rec.Feature, rec.PeriodStart).Scan(&used); err != nil {
		return 0, fmt.Errorf("summing %s usage for user %s: %w", rec.Feature, rec.UserID, err)
	}
	if limit >= 0 && used+rec.Count > limit {
		return used, ErrUsageLimitExceeded
	}
	if _, err := tx.Exec(ctx, insertUsageQ, rec.UserID, rec.Feature, rec.UsageType, rec.PeriodStart, rec.Count); err != nil {
		return used, fmt.Errorf("recording %s usage for user %s: %w", rec.Feature, rec.UserID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return used, fmt.Errorf("committing %s usage for user %s: %w", rec.Feature, rec.UserID, err)
	}
	return used, nil
}
