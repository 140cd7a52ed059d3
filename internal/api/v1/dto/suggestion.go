package dto

// SuggestionContextDTO carries the wellness scores and note used to shape the
// prompt.
type SuggestionContextDTO struct {
	Mood                *int     `json:"mood,omitempty" validate:"omitempty,min=0,max=10"`
	Anxiety             *int     `json:"anxiety,omitempty" validate:"omitempty,min=0,max=10"`
	Energy              *int     `json:"energy,omitempty" validate:"omitempty,min=0,max=10"`
	PreferredCategories []string `json:"preferred_categories,omitempty"`
	Note                string   `json:"note,omitempty" validate:"omitempty,max=2000"`
}

// SuggestionRequestDTO is the request body for a coping strategy request.
type SuggestionRequestDTO struct {
	Context SuggestionContextDTO `json:"context"`
}

// SuggestionDTO is one normalized coping strategy suggestion.
type SuggestionDTO struct {
	StrategyName        string `json:"strategy_name"`
	Description         string `json:"description"`
	Category            string `json:"category"`
	EffectivenessRating int    `json:"effectiveness_rating"`
	Rationale           string `json:"rationale,omitempty"`
}

// SuggestionResponseDTO is the list of generated suggestions.
type SuggestionResponseDTO struct {
	Suggestions []SuggestionDTO `json:"suggestions"`
}
