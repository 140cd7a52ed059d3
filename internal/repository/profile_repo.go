package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository defines methods for accessing user profiles.
type ProfileRepository interface {
	// CreateProfile inserts a profile row. On conflict only the email is
	// refreshed; display name and tier are never overwritten by the upsert.
	CreateProfile(ctx context.Context, p *model.Profile) (*model.Profile, error)
	// GetProfile returns (nil, nil) when no profile row exists; quota checks
	// default absent profiles to the lowest tier.
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	GetProfileByStripeCustomerID(ctx context.Context, customerID string) (*model.Profile, error)
	// MergePreferences merges the given keys into the preferences blob and
	// returns the updated profile.
	MergePreferences(ctx context.Context, userID string, prefs map[string]any) (*model.Profile, error)
	UpdateDisplayName(ctx context.Context, userID, displayName string) (*model.Profile, error)
	UpdateTier(ctx context.Context, userID, tier string) error
	UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error
}

type profileRepo struct {
	pool *pgxpool.Pool
}

// NewProfileRepo creates a new ProfileRepository.
func NewProfileRepo(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepo{pool: pool}
}

const profileColumns = `user_id, email, display_name, subscription_tier, preferences, stripe_customer_id, created_at, updated_at`

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	var rawPrefs []byte
	err := row.Scan(
		&p.UserID,
		&p.Email,
		&p.DisplayName,
		&p.SubscriptionTier,
		&rawPrefs,
		&p.StripeCustomerID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(rawPrefs) > 0 {
		if err := json.Unmarshal(rawPrefs, &p.Preferences); err != nil {
			return nil, fmt.Errorf("unmarshal preferences for user %s: %w", p.UserID, err)
		}
	}
	return &p, nil
}

func (r *profileRepo) CreateProfile(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	const q = `
        INSERT INTO user_profiles (user_id, email, display_name, subscription_tier, preferences)
        VALUES ($1, $2, $3, $4, '{}'::jsonb)
        ON CONFLICT (user_id) DO UPDATE
        SET email = EXCLUDED.email,
            updated_at = NOW()
        RETURNING ` + profileColumns
	tier := p.SubscriptionTier
	if tier == "" {
		tier = model.TierFree
	}
	created, err := scanProfile(r.pool.QueryRow(ctx, q, p.UserID, p.Email, p.DisplayName, tier))
	if err != nil {
		return nil, fmt.Errorf("creating profile for user %s: %w", p.UserID, err)
	}
	return created, nil
}

func (r *profileRepo) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM user_profiles WHERE user_id = $1`
	p, err := scanProfile(r.pool.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching profile for user %s: %w", userID, err)
	}
	return p, nil
}

func (r *profileRepo) GetProfileByStripeCustomerID(ctx context.Context, customerID string) (*model.Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM user_profiles WHERE stripe_customer_id = $1`
	p, err := scanProfile(r.pool.QueryRow(ctx, q, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching profile for stripe customer %s: %w", customerID, err)
	}
	return p, nil
}

func (r *profileRepo) MergePreferences(ctx context.Context, userID string, prefs map[string]any) (*model.Profile, error) {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return nil, fmt.Errorf("marshal preferences: %w", err)
	}
	const q = `
        UPDATE user_profiles
        SET preferences = COALESCE(preferences, '{}'::jsonb) || $2::jsonb,
            updated_at = NOW()
        WHERE user_id = $1
        RETURNING ` + profileColumns
	p, err := scanProfile(r.pool.QueryRow(ctx, q, userID, raw))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("merging preferences for user %s: %w", userID, err)
	}
	return p, nil
}

func (r *profileRepo) UpdateDisplayName(ctx context.Context, userID, displayName string) (*model.Profile, error) {
	const q = `
        UPDATE user_profiles
        SET display_name = $2, updated_at = NOW()
        WHERE user_id = $1
        RETURNING ` + profileColumns
	p, err := scanProfile(r.pool.QueryRow(ctx, q, userID, displayName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("updating display name for user %s: %w", userID, err)
	}
	return p, nil
}

func (r *profileRepo) UpdateTier(ctx context.Context, userID, tier string) error {
	const q = `UPDATE user_profiles SET subscription_tier = $2, updated_at = NOW() WHERE user_id = $1`
	if _, err := r.pool.Exec(ctx, q, userID, tier); err != nil {
		return fmt.Errorf("updating tier for user %s: %w", userID, err)
	}
	return nil
}

func (r *profileRepo) UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error {
	const q = `UPDATE user_profiles SET stripe_customer_id = $2, updated_at = NOW() WHERE user_id = $1`
	if _, err := r.pool.Exec(ctx, q, userID, customerID); err != nil {
		return fmt.Errorf("updating stripe customer id for user %s: %w", userID, err)
	}
	return nil
}
