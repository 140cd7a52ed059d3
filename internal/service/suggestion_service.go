package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
)

var (
	// ErrNoStructuredData means the AI response contained no JSON-shaped substring.
	ErrNoStructuredData = errors.New("no structured data in AI response")
	// ErrUnparsableResponse means the extracted substring was not valid JSON.
	ErrUnparsableResponse = errors.New("failed to parse AI response")
	// ErrInvalidSuggestionFormat means the parsed object lacked the suggestions array.
	ErrInvalidSuggestionFormat = errors.New("invalid AI response format")
)

// SuggestionCategories is the fixed set of coping strategy categories.
var SuggestionCategories = map[string]bool{
	"breathing": true,
	"grounding": true,
	"physical":  true,
	"creative":  true,
	"emotional": true,
	"other":     true,
}

const (
	maxSuggestions            = 5
	maxNoteLength             = 500
	defaultStrategyName       = "Coping strategy"
	defaultDescription        = "A practical coping step."
	defaultCategory           = "other"
	defaultEffectivenessScore = 3
)

// SuggestionContext is the caller-provided wellness context.
type SuggestionContext struct {
	Mood                *int
	Anxiety             *int
	Energy              *int
	PreferredCategories []string
	Note                string
}

// Suggestion is a normalized coping strategy suggestion.
type Suggestion struct {
	StrategyName        string `json:"strategy_name"`
	Description         string `json:"description"`
	Category            string `json:"category"`
	EffectivenessRating int    `json:"effectiveness_rating"`
	Rationale           string `json:"rationale,omitempty"`
}

// SuggestionService generates coping strategy suggestions from wellness context.
type SuggestionService interface {
	GenerateSuggestions(ctx context.Context, sc SuggestionContext) ([]Suggestion, error)
}

type suggestionService struct {
	gemini GeminiClient
	logger zerolog.Logger
}

// NewSuggestionService creates a new SuggestionService with a scoped logger.
func NewSuggestionService(gemini GeminiClient, logger zerolog.Logger) SuggestionService {
	return &suggestionService{
		gemini: gemini,
		logger: logger.With().Str("service", "SuggestionService").Logger(),
	}
}

// scoreOrNA renders an optional 0-10 score for the prompt.
func scoreOrNA(v *int) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *v)
}

// BuildSuggestionPrompt renders the bounded instruction block sent to the
// model. The note is truncated so user input cannot grow the prompt without
// bound.
func BuildSuggestionPrompt(sc SuggestionContext) string {
	note := sc.Note
	if runes := []rune(note); len(runes) > maxNoteLength {
		note = string(runes[:maxNoteLength])
	}
	categories := "any"
	if len(sc.PreferredCategories) > 0 {
		categories = strings.Join(sc.PreferredCategories, ", ")
	}

	var sb strings.Builder
	sb.WriteString("You are a trauma-informed recovery coach. Based on the user's current state, suggest up to 5 coping strategies.\n\n")
	fmt.Fprintf(&sb, "Current state:\n- Mood (0-10): %s\n- Anxiety (0-10): %s\n- Energy (0-10): %s\n", scoreOrNA(sc.Mood), scoreOrNA(sc.Anxiety), scoreOrNA(sc.Energy))
	fmt.Fprintf(&sb, "- Preferred categories: %s\n", categories)
	if note != "" {
		fmt.Fprintf(&sb, "- Note: %s\n", note)
	}
	sb.WriteString("\nRespond with ONLY a JSON object, no markdown and no prose, in this exact shape:\n")
	sb.WriteString(`{"suggestions":[{"strategy_name":"...","description":"...","category":"breathing|grounding|physical|creative|emotional|other","effectiveness_rating":1,"rationale":"..."}]}`)
	return sb.String()
}

// ExtractJSONObject returns the first-to-last-brace substring of raw. The
// extraction is greedy and makes no attempt to balance braces; callers must
// treat the result as untrusted and parse-validate it.
func ExtractJSONObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}

type aiSuggestion struct {
	StrategyName        string   `json:"strategy_name"`
	Description         string   `json:"description"`
	Category            string   `json:"category"`
	EffectivenessRating *float64 `json:"effectiveness_rating"`
	Rationale           string   `json:"rationale"`
}

// normalizeSuggestion clamps a raw model suggestion into the documented shape.
func normalizeSuggestion(raw aiSuggestion) Suggestion {
	s := Suggestion{
		StrategyName:        strings.TrimSpace(raw.StrategyName),
		Description:         strings.TrimSpace(raw.Description),
		Category:            strings.ToLower(strings.TrimSpace(raw.Category)),
		EffectivenessRating: defaultEffectivenessScore,
		Rationale:           strings.TrimSpace(raw.Rationale),
	}
	if s.StrategyName == "" {
		s.StrategyName = defaultStrategyName
	}
	if s.Description == "" {
		s.Description = defaultDescription
	}
	if !SuggestionCategories[s.Category] {
		s.Category = defaultCategory
	}
	if raw.EffectivenessRating != nil {
		rating := int(math.Round(*raw.EffectivenessRating))
		if rating < 1 {
			rating = 1
		}
		if rating > 5 {
			rating = 5
		}
		s.EffectivenessRating = rating
	}
	return s
}

// ParseSuggestions extracts, parses and normalizes the model's free-text
// response into at most maxSuggestions suggestions.
func ParseSuggestions(raw string) ([]Suggestion, error) {
	sub, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, ErrNoStructuredData
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(sub), &payload); err != nil {
		return nil, ErrUnparsableResponse
	}
	rawList, ok := payload["suggestions"]
	if !ok {
		return nil, ErrInvalidSuggestionFormat
	}
	var items []aiSuggestion
	if err := json.Unmarshal(rawList, &items); err != nil {
		return nil, ErrInvalidSuggestionFormat
	}

	if len(items) > maxSuggestions {
		items = items[:maxSuggestions]
	}
	suggestions := make([]Suggestion, 0, len(items))
	for _, item := range items {
		suggestions = append(suggestions, normalizeSuggestion(item))
	}
	return suggestions, nil
}

func (s *suggestionService) GenerateSuggestions(ctx context.Context, sc SuggestionContext) ([]Suggestion, error) {
	prompt := BuildSuggestionPrompt(sc)
	raw, err := s.gemini.GenerateText(ctx, prompt)
	if err != nil {
		s.logger.Error().Err(err).Msg("Gemini call failed")
		return nil, err
	}

	suggestions, err := ParseSuggestions(raw)
	if err != nil {
		s.logger.Error().Err(err).Str("raw_response", raw).Msg("Failed to normalize AI suggestions")
		return nil, err
	}
	return suggestions, nil
}
