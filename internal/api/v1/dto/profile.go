package dto

import "time"

// ProfileResponseDTO is returned in API responses for user profiles
type ProfileResponseDTO struct {
	UserID           string         `json:"user_id"`
	Email            string         `json:"email"`
	DisplayName      string         `json:"display_name"`
	SubscriptionTier string         `json:"subscription_tier"`
	Preferences      map[string]any `json:"preferences"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// ProfileUpdateDTO is used for incoming profile update requests
type ProfileUpdateDTO struct {
	DisplayName *string        `json:"display_name,omitempty" validate:"omitempty,max=100"`
	Preferences map[string]any `json:"preferences,omitempty"`
}
