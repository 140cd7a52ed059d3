package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// QuotaResult is the outcome of a quota check. Cap and Remaining are -1 for
// unlimited tiers.
type QuotaResult struct {
	Allowed         bool
	Cap             int64
	Used            int64
	Remaining       int64
	UpgradeRequired bool
}

// FeatureUsage is one feature's accounting in a usage summary.
type FeatureUsage struct {
	Feature   string
	LimitType string
	Cap       int64
	Used      int64
	Remaining int64
}

// QuotaService enforces per-tier feature limits by summing recorded usage for
// the current billing period.
type QuotaService interface {
	// Check computes the caller's remaining allowance for a feature. When
	// incoming is positive it is treated as the size of a pending request and
	// compared against the remaining allowance.
	Check(ctx context.Context, userID, feature, limitType string, incoming int64) (*QuotaResult, error)
	// ConsumeCoachMessage atomically checks and records one coach message.
	ConsumeCoachMessage(ctx context.Context, userID string) (*QuotaResult, error)
	Summary(ctx context.Context, userID string) ([]FeatureUsage, error)
}

type quotaService struct {
	profileRepo  repository.ProfileRepository
	limitRepo    repository.LimitRepository
	usageRepo    repository.UsageRepository
	evidenceRepo repository.EvidenceRepository
	logger       zerolog.Logger
}

// NewQuotaService creates a new QuotaService with a scoped logger.
func NewQuotaService(
	profileRepo repository.ProfileRepository,
	limitRepo repository.LimitRepository,
	usageRepo repository.UsageRepository,
	evidenceRepo repository.EvidenceRepository,
	logger zerolog.Logger,
) QuotaService {
	return &quotaService{
		profileRepo:  profileRepo,
		limitRepo:    limitRepo,
		usageRepo:    usageRepo,
		evidenceRepo: evidenceRepo,
		logger:       logger.With().Str("service", "QuotaService").Logger(),
	}
}

// resolveTier returns the user's subscription tier, defaulting to the lowest
// tier when no profile row exists.
func (s *quotaService) resolveTier(ctx context.Context, userID string) (string, error) {
	profile, err := s.profileRepo.GetProfile(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("resolving tier for user %s: %w", userID, err)
	}
	if profile == nil || profile.SubscriptionTier == "" {
		return model.TierFree, nil
	}
	return profile.SubscriptionTier, nil
}

// usedForFeature sums the feature's usage since the billing period start.
func (s *quotaService) usedForFeature(ctx context.Context, userID, feature string, periodStart time.Time) (int64, error) {
	switch feature {
	case model.FeatureEvidenceStorage:
		return s.evidenceRepo.SumSizeBytesSince(ctx, userID, periodStart)
	case model.FeatureTranscription:
		seconds, err := s.evidenceRepo.SumDurationSecondsSince(ctx, userID, periodStart)
		if err != nil {
			return 0, err
		}
		return (seconds + 59) / 60, nil
	default:
		return s.usageRepo.SumUsage(ctx, userID, feature, periodStart)
	}
}

func (s *quotaService) Check(ctx context.Context, userID, feature, limitType string, incoming int64) (*QuotaResult, error) {
	tier, err := s.resolveTier(ctx, userID)
	if err != nil {
		return nil, err
	}
	limit, err := s.limitRepo.GetLimit(ctx, tier, feature, limitType)
	if err != nil {
		return nil, err
	}
	if limit == model.UnlimitedLimit {
		// Unlimited short-circuits the usage sum entirely.
		return &QuotaResult{Allowed: true, Cap: model.UnlimitedLimit, Remaining: model.UnlimitedLimit}, nil
	}

	periodStart := model.BillingPeriodStart(time.Now())
	used, err := s.usedForFeature(ctx, userID, feature, periodStart)
	if err != nil {
		return nil, err
	}

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	result := &QuotaResult{Allowed: true, Cap: limit, Used: used, Remaining: remaining}
	if incoming > 0 && incoming > remaining {
		result.Allowed = false
		result.UpgradeRequired = true
	}
	return result, nil
}

func (s *quotaService) ConsumeCoachMessage(ctx context.Context, userID string) (*QuotaResult, error) {
	tier, err := s.resolveTier(ctx, userID)
	if err != nil {
		return nil, err
	}
	limit, err := s.limitRepo.GetLimit(ctx, tier, model.FeatureCoachMessages, model.LimitTypeMonthlyCount)
	if err != nil {
		return nil, err
	}

	rec := &model.UsageRecord{
		UserID:      userID,
		Feature:     model.FeatureCoachMessages,
		UsageType:   "message",
		PeriodStart: model.BillingPeriodStart(time.Now()),
		Count:       1,
	}
	used, err := s.usageRepo.CheckAndRecordUsage(ctx, rec, limit)
	if err != nil {
		if errors.Is(err, repository.ErrUsageLimitExceeded) {
			remaining := limit - used
			if remaining < 0 {
				remaining = 0
			}
			return &QuotaResult{Allowed: false, Cap: limit, Used: used, Remaining: remaining, UpgradeRequired: true}, nil
		}
		return nil, err
	}

	if limit == model.UnlimitedLimit {
		return &QuotaResult{Allowed: true, Cap: model.UnlimitedLimit, Used: used + 1, Remaining: model.UnlimitedLimit}, nil
	}
	remaining := limit - used - 1
	if remaining < 0 {
		remaining = 0
	}
	return &QuotaResult{Allowed: true, Cap: limit, Used: used + 1, Remaining: remaining}, nil
}

func (s *quotaService) Summary(ctx context.Context, userID string) ([]FeatureUsage, error) {
	features := []struct {
		feature   string
		limitType string
	}{
		{model.FeatureEvidenceStorage, model.LimitTypeBytes},
		{model.FeatureTranscription, model.LimitTypeMinutes},
		{model.FeatureCoachMessages, model.LimitTypeMonthlyCount},
	}

	tier, err := s.resolveTier(ctx, userID)
	if err != nil {
		return nil, err
	}
	periodStart := model.BillingPeriodStart(time.Now())

	summary := make([]FeatureUsage, 0, len(features))
	for _, f := range features {
		limit, err := s.limitRepo.GetLimit(ctx, tier, f.feature, f.limitType)
		if err != nil {
			return nil, err
		}
		entry := FeatureUsage{Feature: f.feature, LimitType: f.limitType, Cap: limit}
		if limit == model.UnlimitedLimit {
			entry.Remaining = model.UnlimitedLimit
			summary = append(summary, entry)
			continue
		}
		used, err := s.usedForFeature(ctx, userID, f.feature, periodStart)
		if err != nil {
			return nil, err
		}
		entry.Used = used
		entry.Remaining = limit - used
		if entry.Remaining < 0 {
			entry.Remaining = 0
		}
		summary = append(summary, entry)
	}
	return summary, nil
}
