package model

import "time"

// Feature names used for quota lookups.
const (
	FeatureEvidenceStorage = "evidence_storage"
	FeatureTranscription   = "transcription"
	FeatureCoachMessages   = "coach_messages"
)

// Limit types used for quota lookups.
const (
	LimitTypeBytes        = "bytes"
	LimitTypeMinutes      = "minutes"
	LimitTypeMonthlyCount = "monthly_count"
)

// UnlimitedLimit marks a (tier, feature, limit type) row as uncapped.
const UnlimitedLimit int64 = -1

// FeatureLimit is a row of the static feature_limits configuration table.
type FeatureLimit struct {
	Tier       string `db:"tier" json:"tier"`
	Feature    string `db:"feature" json:"feature"`
	LimitType  string `db:"limit_type" json:"limit_type"`
	LimitValue int64  `db:"limit_value" json:"limit_value"`
}

// UsageRecord accumulates per-feature usage within a billing period. The
// period start is always the first calendar day of the month in UTC.
type UsageRecord struct {
	UserID      string    `db:"user_id" json:"user_id"`
	Feature     string    `db:"feature" json:"feature"`
	UsageType   string    `db:"usage_type" json:"usage_type"`
	PeriodStart time.Time `db:"period_start" json:"period_start"`
	Count       int64     `db:"count" json:"count"`
}

// BillingPeriodStart returns the usage aggregation floor for now: midnight
// UTC on the first day of the current month.
func BillingPeriodStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
