package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

// ProfileHandler handles profile and usage summary endpoints
type ProfileHandler struct {
	profileService service.ProfileService
	quotaService   service.QuotaService
	validate       *validator.Validate
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(profileService service.ProfileService, quotaService service.QuotaService, validate *validator.Validate) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, quotaService: quotaService, validate: validate}
}

// RegisterRoutes mounts profile routes
func (h *ProfileHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/profile", authMw(http.HandlerFunc(h.handleProfile)))
	mux.Handle("/profile/usage", authMw(http.HandlerFunc(h.getUsageSummary)))
}

func (h *ProfileHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getProfile(w, r)
	case http.MethodPatch:
		h.updateProfile(w, r)
	default:
		http.NotFound(w, r)
	}
}

func toProfileDTO(p *model.Profile) dto.ProfileResponseDTO {
	prefs := p.Preferences
	if prefs == nil {
		prefs = map[string]any{}
	}
	return dto.ProfileResponseDTO{
		UserID:           p.UserID,
		Email:            p.Email,
		DisplayName:      p.DisplayName,
		SubscriptionTier: p.SubscriptionTier,
		Preferences:      prefs,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// getProfile godoc
// @Summary Get the authenticated user's profile
// @Description Returns the profile, creating it on first request.
// @Tags profile
// @Produce json
// @Success 200 {object} dto.ProfileResponseDTO
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /profile [get]
func (h *ProfileHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || claims.Subject == "" {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	profile, err := h.profileService.EnsureProfile(r.Context(), claims.Subject, claims.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, toProfileDTO(profile))
}

// updateProfile godoc
// @Summary Update the authenticated user's profile
// @Description Updates the display name and merges preference keys.
// @Tags profile
// @Accept json
// @Produce json
// @Param profile body dto.ProfileUpdateDTO true "Profile update request"
// @Success 200 {object} dto.ProfileResponseDTO
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /profile [patch]
func (h *ProfileHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}
	var req dto.ProfileUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	var profile *model.Profile
	var err error
	if req.DisplayName != nil {
		profile, err = h.profileService.UpdateDisplayName(r.Context(), userID, *req.DisplayName)
		if err != nil {
			h.writeProfileError(w, err)
			return
		}
	}
	if len(req.Preferences) > 0 {
		profile, err = h.profileService.MergePreferences(r.Context(), userID, req.Preferences)
		if err != nil {
			h.writeProfileError(w, err)
			return
		}
	}
	if profile == nil {
		profile, err = h.profileService.GetProfile(r.Context(), userID)
		if err != nil {
			h.writeProfileError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, toProfileDTO(profile))
}

func (h *ProfileHandler) writeProfileError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrProfileNotFound) {
		writeError(w, http.StatusNotFound, "Profile not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to update profile")
}

// getUsageSummary godoc
// @Summary Get the current billing period usage summary
// @Description Returns per-feature caps, usage and remaining allowance.
// @Tags profile
// @Produce json
// @Success 200 {object} dto.UsageSummaryResponseDTO
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /profile/usage [get]
func (h *ProfileHandler) getUsageSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}
	features, err := h.quotaService.Summary(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load usage summary")
		return
	}
	tier := model.TierFree
	if profile, err := h.profileService.GetProfile(r.Context(), userID); err == nil {
		tier = profile.SubscriptionTier
	}
	resp := dto.UsageSummaryResponseDTO{Tier: tier, Features: make([]dto.FeatureUsageDTO, 0, len(features))}
	for _, f := range features {
		resp.Features = append(resp.Features, dto.FeatureUsageDTO{
			Feature:   f.Feature,
			LimitType: f.LimitType,
			Limit:     f.Cap,
			Used:      f.Used,
			Remaining: f.Remaining,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
