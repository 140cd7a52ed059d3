package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

// SuggestionHandler handles coping strategy suggestion endpoints
type SuggestionHandler struct {
	suggestionService service.SuggestionService
	validate          *validator.Validate
}

// NewSuggestionHandler creates a new SuggestionHandler
func NewSuggestionHandler(suggestionService service.SuggestionService, validate *validator.Validate) *SuggestionHandler {
	return &SuggestionHandler{suggestionService: suggestionService, validate: validate}
}

// RegisterRoutes mounts suggestion routes
func (h *SuggestionHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/wellness/suggestions", authMw(http.HandlerFunc(h.generateSuggestions)))
}

// generateSuggestions godoc
// @Summary Generate coping strategy suggestions
// @Description Produces up to five normalized suggestions from the user's wellness context.
// @Tags wellness
// @Accept json
// @Produce json
// @Param context body dto.SuggestionRequestDTO true "Wellness context"
// @Success 200 {object} dto.SuggestionResponseDTO
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /wellness/suggestions [post]
func (h *SuggestionHandler) generateSuggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if _, ok := userIDFromRequest(w, r); !ok {
		return
	}
	var req dto.SuggestionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	suggestions, err := h.suggestionService.GenerateSuggestions(r.Context(), service.SuggestionContext{
		Mood:                req.Context.Mood,
		Anxiety:             req.Context.Anxiety,
		Energy:              req.Context.Energy,
		PreferredCategories: req.Context.PreferredCategories,
		Note:                req.Context.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoStructuredData):
			writeError(w, http.StatusInternalServerError, "AI did not return structured data")
		case errors.Is(err, service.ErrUnparsableResponse):
			writeError(w, http.StatusInternalServerError, "Failed to parse AI response")
		case errors.Is(err, service.ErrInvalidSuggestionFormat):
			writeError(w, http.StatusInternalServerError, "Invalid AI response format")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to generate suggestions")
		}
		return
	}

	resp := dto.SuggestionResponseDTO{Suggestions: make([]dto.SuggestionDTO, 0, len(suggestions))}
	for _, s := range suggestions {
		resp.Suggestions = append(resp.Suggestions, dto.SuggestionDTO{
			StrategyName:        s.StrategyName,
			Description:         s.Description,
			Category:            s.Category,
			EffectivenessRating: s.EffectivenessRating,
			Rationale:           s.Rationale,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
