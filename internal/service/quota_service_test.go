package service

import (
	"context"
	"testing"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

type fakeProfileRepo struct {
	repository.ProfileRepository
	profile *model.Profile
}

func (f *fakeProfileRepo) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	return f.profile, nil
}

type fakeLimitRepo struct {
	limits map[string]int64
}

func (f *fakeLimitRepo) GetLimit(ctx context.Context, tier, feature, limitType string) (int64, error) {
	limit, ok := f.limits[tier+"/"+feature+"/"+limitType]
	if !ok {
		return 0, repository.ErrLimitNotConfigured
	}
	return limit, nil
}

type fakeUsageRepo struct {
	repository.UsageRepository
	used      int64
	sumCalls  int
	recorded  []*model.UsageRecord
	lastLimit int64
}

func (f *fakeUsageRepo) SumUsage(ctx context.Context, userID, feature string, periodStart time.Time) (int64, error) {
	f.sumCalls++
	return f.used, nil
}

func (f *fakeUsageRepo) CheckAndRecordUsage(ctx context.Context, rec *model.UsageRecord, limit int64) (int64, error) {
	f.lastLimit = limit
	if limit >= 0 && f.used+rec.Count > limit {
		return f.used, repository.ErrUsageLimitExceeded
	}
	f.recorded = append(f.recorded, rec)
	prior := f.used
	f.used += rec.Count
	return prior, nil
}

type fakeEvidenceRepo struct {
	repository.EvidenceRepository
	sizeBytes       int64
	durationSeconds int64
}

func (f *fakeEvidenceRepo) SumSizeBytesSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	return f.sizeBytes, nil
}

func (f *fakeEvidenceRepo) SumDurationSecondsSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	return f.durationSeconds, nil
}

func newTestQuotaService(tier string, limits map[string]int64, usage *fakeUsageRepo, evidence *fakeEvidenceRepo) QuotaService {
	var profile *model.Profile
	if tier != "" {
		profile = &model.Profile{UserID: "u1", SubscriptionTier: tier}
	}
	if usage == nil {
		usage = &fakeUsageRepo{}
	}
	if evidence == nil {
		evidence = &fakeEvidenceRepo{}
	}
	return NewQuotaService(
		&fakeProfileRepo{profile: profile},
		&fakeLimitRepo{limits: limits},
		usage,
		evidence,
		zerolog.Nop(),
	)
}

func TestCheckUnlimitedShortCircuits(t *testing.T) {
	usage := &fakeUsageRepo{used: 900}
	svc := newTestQuotaService(model.TierEmpowerment, map[string]int64{
		"empowerment/coach_messages/monthly_count": model.UnlimitedLimit,
	}, usage, nil)

	got, err := svc.Check(context.Background(), "u1", model.FeatureCoachMessages, model.LimitTypeMonthlyCount, 1)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !got.Allowed || got.Cap != -1 || got.Remaining != -1 {
		t.Errorf("unlimited check should allow with -1 accounting, got %+v", got)
	}
	if usage.sumCalls != 0 {
		t.Errorf("unlimited check should not sum usage, summed %d times", usage.sumCalls)
	}
}

func TestCheckDeniesWhenIncomingExceedsRemaining(t *testing.T) {
	evidence := &fakeEvidenceRepo{sizeBytes: 90}
	svc := newTestQuotaService(model.TierFree, map[string]int64{
		"free/evidence_storage/bytes": 100,
	}, nil, evidence)

	got, err := svc.Check(context.Background(), "u1", model.FeatureEvidenceStorage, model.LimitTypeBytes, 20)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if got.Allowed {
		t.Error("expected denial when incoming exceeds remaining")
	}
	if !got.UpgradeRequired {
		t.Error("denial should set UpgradeRequired")
	}
	if got.Cap != 100 || got.Used != 90 || got.Remaining != 10 {
		t.Errorf("unexpected accounting: %+v", got)
	}
}

func TestCheckAllowsWithinRemaining(t *testing.T) {
	evidence := &fakeEvidenceRepo{sizeBytes: 90}
	svc := newTestQuotaService(model.TierFree, map[string]int64{
		"free/evidence_storage/bytes": 100,
	}, nil, evidence)

	got, err := svc.Check(context.Background(), "u1", model.FeatureEvidenceStorage, model.LimitTypeBytes, 10)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !got.Allowed || got.UpgradeRequired {
		t.Errorf("expected allow for exact fit, got %+v", got)
	}
}

func TestCheckClampsRemainingAtZero(t *testing.T) {
	evidence := &fakeEvidenceRepo{sizeBytes: 150}
	svc := newTestQuotaService(model.TierFree, map[string]int64{
		"free/evidence_storage/bytes": 100,
	}, nil, evidence)

	got, err := svc.Check(context.Background(), "u1", model.FeatureEvidenceStorage, model.LimitTypeBytes, 0)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if got.Remaining != 0 {
		t.Errorf("remaining should clamp to 0, got %d", got.Remaining)
	}
}

func TestCheckTranscriptionRoundsMinutesUp(t *testing.T) {
	// 61 seconds is 2 minutes of quota.
	evidence := &fakeEvidenceRepo{durationSeconds: 61}
	svc := newTestQuotaService(model.TierFree, map[string]int64{
		"free/transcription/minutes": 10,
	}, nil, evidence)

	got, err := svc.Check(context.Background(), "u1", model.FeatureTranscription, model.LimitTypeMinutes, 0)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if got.Used != 2 {
		t.Errorf("61 seconds should count as 2 minutes, got %d", got.Used)
	}
}

func TestCheckMissingProfileDefaultsToFreeTier(t *testing.T) {
	svc := newTestQuotaService("", map[string]int64{
		"free/coach_messages/monthly_count": 5,
	}, nil, nil)

	got, err := svc.Check(context.Background(), "u1", model.FeatureCoachMessages, model.LimitTypeMonthlyCount, 1)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if got.Cap != 5 {
		t.Errorf("missing profile should resolve free-tier limit, got cap %d", got.Cap)
	}
}

func TestConsumeCoachMessageRecords(t *testing.T) {
	usage := &fakeUsageRepo{used: 3}
	svc := newTestQuotaService(model.TierFree, map[string]int64{
		"free/coach_messages/monthly_count": 5,
	}, usage, nil)

	got, err := svc.ConsumeCoachMessage(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ConsumeCoachMessage returned error: %v", err)
	}
	if !got.Allowed || got.Used != 4 || got.Remaining != 1 {
		t.Errorf("unexpected accounting after consume: %+v", got)
	}
	if len(usage.recorded) != 1 || usage.recorded[0].Count != 1 {
		t.Fatalf("expected one recorded unit, got %+v", usage.recorded)
	}
	if usage.recorded[0].Feature != model.FeatureCoachMessages {
		t.Errorf("recorded wrong feature %q", usage.recorded[0].Feature)
	}
}

func TestConsumeCoachMessageExceeded(t *testing.T) {
	usage := &fakeUsageRepo{used: 5}
	svc := newTestQuotaService(model.TierFree, map[string]int64{
		"free/coach_messages/monthly_count": 5,
	}, usage, nil)

	got, err := svc.ConsumeCoachMessage(context.Background(), "u1")
	if err != nil {
		t.Fatalf("quota exhaustion should not be an error: %v", err)
	}
	if got.Allowed {
		t.Error("expected denial at the cap")
	}
	if !got.UpgradeRequired || got.Used != 5 || got.Remaining != 0 {
		t.Errorf("unexpected accounting on denial: %+v", got)
	}
	if len(usage.recorded) != 0 {
		t.Error("denied consume must not record usage")
	}
}

func TestSummaryCoversAllFeatures(t *testing.T) {
	usage := &fakeUsageRepo{used: 2}
	evidence := &fakeEvidenceRepo{sizeBytes: 1024, durationSeconds: 120}
	svc := newTestQuotaService(model.TierRecovery, map[string]int64{
		"recovery/evidence_storage/bytes":       4096,
		"recovery/transcription/minutes":        60,
		"recovery/coach_messages/monthly_count": model.UnlimitedLimit,
	}, usage, evidence)

	got, err := svc.Summary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 features, got %d", len(got))
	}
	byFeature := map[string]FeatureUsage{}
	for _, f := range got {
		byFeature[f.Feature] = f
	}
	if f := byFeature[model.FeatureEvidenceStorage]; f.Used != 1024 || f.Remaining != 3072 {
		t.Errorf("unexpected storage summary: %+v", f)
	}
	if f := byFeature[model.FeatureTranscription]; f.Used != 2 || f.Remaining != 58 {
		t.Errorf("unexpected transcription summary: %+v", f)
	}
	if f := byFeature[model.FeatureCoachMessages]; f.Cap != -1 || f.Remaining != -1 || f.Used != 0 {
		t.Errorf("unlimited summary should report -1 accounting: %+v", f)
	}
}
