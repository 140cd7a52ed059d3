package model

import "time"

// Subscription tiers, lowest to highest.
const (
	TierFree        = "free"
	TierRecovery    = "recovery"
	TierEmpowerment = "empowerment"
)

// Profile represents a user profile row in user_profiles.
type Profile struct {
	UserID           string         `db:"user_id" json:"user_id"`
	Email            string         `db:"email" json:"email"`
	DisplayName      string         `db:"display_name" json:"display_name"`
	SubscriptionTier string         `db:"subscription_tier" json:"subscription_tier"`
	Preferences      map[string]any `db:"preferences" json:"preferences"`
	StripeCustomerID *string        `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// TierRank returns the ordinal position of a tier, with unknown values
// collapsing to the lowest tier.
func TierRank(tier string) int {
	switch tier {
	case TierEmpowerment:
		return 2
	case TierRecovery:
		return 1
	default:
		return 0
	}
}
