package service

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileService manages user profiles and preference documents.
type ProfileService interface {
	// EnsureProfile creates the profile row on first sight of a user and
	// returns the stored profile either way.
	EnsureProfile(ctx context.Context, userID, email string) (*model.Profile, error)
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	UpdateDisplayName(ctx context.Context, userID, displayName string) (*model.Profile, error)
	MergePreferences(ctx context.Context, userID string, prefs map[string]any) (*model.Profile, error)
}

type profileService struct {
	profileRepo repository.ProfileRepository
	logger      zerolog.Logger
}

// NewProfileService creates a new ProfileService with a scoped logger.
func NewProfileService(profileRepo repository.ProfileRepository, logger zerolog.Logger) ProfileService {
	return &profileService{
		profileRepo: profileRepo,
		logger:      logger.With().Str("service", "ProfileService").Logger(),
	}
}

func (s *profileService) EnsureProfile(ctx context.Context, userID, email string) (*model.Profile, error) {
	profile, err := s.profileRepo.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ensuring profile: %w", err)
	}
	if profile != nil {
		return profile, nil
	}
	// First sight of this user; the upsert absorbs a concurrent first request.
	profile, err = s.profileRepo.CreateProfile(ctx, &model.Profile{
		UserID:           userID,
		Email:            email,
		SubscriptionTier: model.TierFree,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to ensure profile")
		return nil, fmt.Errorf("ensuring profile: %w", err)
	}
	return profile, nil
}

func (s *profileService) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	profile, err := s.profileRepo.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

func (s *profileService) UpdateDisplayName(ctx context.Context, userID, displayName string) (*model.Profile, error) {
	profile, err := s.profileRepo.UpdateDisplayName(ctx, userID, displayName)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to update display name")
		return nil, fmt.Errorf("updating display name: %w", err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

func (s *profileService) MergePreferences(ctx context.Context, userID string, prefs map[string]any) (*model.Profile, error) {
	profile, err := s.profileRepo.MergePreferences(ctx, userID, prefs)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to merge preferences")
		return nil, fmt.Errorf("merging preferences: %w", err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}
