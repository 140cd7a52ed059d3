package service

import (
	"context"
	"testing"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

type fakeProfileStore struct {
	repository.ProfileRepository
	profile *model.Profile
	creates int
}

func (f *fakeProfileStore) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	if f.profile != nil && f.profile.UserID == userID {
		return f.profile, nil
	}
	return nil, nil
}

func (f *fakeProfileStore) CreateProfile(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	f.creates++
	f.profile = p
	return p, nil
}

func TestEnsureProfileKeepsExistingRow(t *testing.T) {
	repo := &fakeProfileStore{profile: &model.Profile{
		UserID:           "u1",
		Email:            "ana@example.com",
		DisplayName:      "Ana",
		SubscriptionTier: model.TierRecovery,
	}}
	svc := NewProfileService(repo, zerolog.Nop())

	got, err := svc.EnsureProfile(context.Background(), "u1", "ana@example.com")
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if repo.creates != 0 {
		t.Errorf("existing profile must not be rewritten, got %d creates", repo.creates)
	}
	if got.DisplayName != "Ana" {
		t.Errorf("display name = %q, want the stored value", got.DisplayName)
	}
	if got.SubscriptionTier != model.TierRecovery {
		t.Errorf("tier = %q, want the stored value", got.SubscriptionTier)
	}
}

func TestEnsureProfileCreatesOnFirstSight(t *testing.T) {
	repo := &fakeProfileStore{}
	svc := NewProfileService(repo, zerolog.Nop())

	got, err := svc.EnsureProfile(context.Background(), "u1", "ana@example.com")
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if repo.creates != 1 {
		t.Fatalf("expected one create, got %d", repo.creates)
	}
	if got.SubscriptionTier != model.TierFree {
		t.Errorf("new profiles start on the free tier, got %q", got.SubscriptionTier)
	}
	if got.Email != "ana@example.com" {
		t.Errorf("email = %q", got.Email)
	}
}
