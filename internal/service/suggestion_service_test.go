package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type fakeGemini struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func intPtr(v int) *int { return &v }

func TestBuildSuggestionPromptIncludesScores(t *testing.T) {
	prompt := BuildSuggestionPrompt(SuggestionContext{
		Mood:                intPtr(3),
		Anxiety:             intPtr(8),
		PreferredCategories: []string{"breathing", "grounding"},
		Note:                "rough morning",
	})
	for _, want := range []string{
		"Mood (0-10): 3",
		"Anxiety (0-10): 8",
		"Energy (0-10): n/a",
		"breathing, grounding",
		"rough morning",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildSuggestionPromptTruncatesNote(t *testing.T) {
	long := strings.Repeat("a", 2000)
	prompt := BuildSuggestionPrompt(SuggestionContext{Note: long})
	if strings.Contains(prompt, long) {
		t.Fatal("expected long note to be truncated")
	}
	if !strings.Contains(prompt, strings.Repeat("a", maxNoteLength)) {
		t.Fatal("expected truncated note prefix to survive")
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"surrounded by prose", "Sure! Here you go:\n```json\n{\"a\":1}\n```\nHope it helps.", `{"a":1}`, true},
		{"greedy across braces", `x {"a":{"b":2}} y {"c":3} z`, `{"a":{"b":2}} y {"c":3}`, true},
		{"no braces", "no json here", "", false},
		{"reversed braces", "} {", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.raw)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("ExtractJSONObject(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseSuggestionsNormalizes(t *testing.T) {
	raw := `Here are my ideas:
{"suggestions":[
  {"strategy_name":"Box breathing","description":"Breathe in a square pattern.","category":"breathing","effectiveness_rating":9},
  {"strategy_name":"","description":"","category":"swimming","effectiveness_rating":0.2},
  {"strategy_name":"Walk","description":"Take a short walk.","category":"PHYSICAL","effectiveness_rating":3.6}
]}`
	got, err := ParseSuggestions(raw)
	if err != nil {
		t.Fatalf("ParseSuggestions returned error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(got))
	}
	if got[0].EffectivenessRating != 5 {
		t.Errorf("rating 9 should clamp to 5, got %d", got[0].EffectivenessRating)
	}
	if got[1].StrategyName != defaultStrategyName {
		t.Errorf("empty name should fall back, got %q", got[1].StrategyName)
	}
	if got[1].Description != defaultDescription {
		t.Errorf("empty description should fall back, got %q", got[1].Description)
	}
	if got[1].Category != "other" {
		t.Errorf("unknown category should fall back to other, got %q", got[1].Category)
	}
	if got[1].EffectivenessRating != 1 {
		t.Errorf("rating 0.2 should clamp to 1, got %d", got[1].EffectivenessRating)
	}
	if got[2].Category != "physical" {
		t.Errorf("category should be lowercased, got %q", got[2].Category)
	}
	if got[2].EffectivenessRating != 4 {
		t.Errorf("rating 3.6 should round to 4, got %d", got[2].EffectivenessRating)
	}
}

func TestParseSuggestionsMissingRatingDefaults(t *testing.T) {
	got, err := ParseSuggestions(`{"suggestions":[{"strategy_name":"Journal","description":"Write it down.","category":"emotional"}]}`)
	if err != nil {
		t.Fatalf("ParseSuggestions returned error: %v", err)
	}
	if got[0].EffectivenessRating != defaultEffectivenessScore {
		t.Fatalf("missing rating should default to %d, got %d", defaultEffectivenessScore, got[0].EffectivenessRating)
	}
}

func TestParseSuggestionsCapsAtFive(t *testing.T) {
	var items []string
	for i := 0; i < 7; i++ {
		items = append(items, fmt.Sprintf(`{"strategy_name":"s%d","description":"d","category":"other","effectiveness_rating":3}`, i))
	}
	raw := `{"suggestions":[` + strings.Join(items, ",") + `]}`
	got, err := ParseSuggestions(raw)
	if err != nil {
		t.Fatalf("ParseSuggestions returned error: %v", err)
	}
	if len(got) != maxSuggestions {
		t.Fatalf("expected %d suggestions, got %d", maxSuggestions, len(got))
	}
	if got[0].StrategyName != "s0" || got[4].StrategyName != "s4" {
		t.Fatal("expected the first five suggestions to be kept in order")
	}
}

func TestParseSuggestionsErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"no json", "I cannot help with that.", ErrNoStructuredData},
		{"broken json", `{"suggestions":[}`, ErrUnparsableResponse},
		{"missing key", `{"ideas":[]}`, ErrInvalidSuggestionFormat},
		{"wrong type", `{"suggestions":"none"}`, ErrInvalidSuggestionFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSuggestions(tt.raw); !errors.Is(err, tt.want) {
				t.Fatalf("ParseSuggestions(%q) error = %v, want %v", tt.raw, err, tt.want)
			}
		})
	}
}

func TestGenerateSuggestionsEndToEnd(t *testing.T) {
	gemini := &fakeGemini{response: `Sure thing!
{"suggestions":[{"strategy_name":"Box breathing","description":"Slow square breaths.","category":"breathing","effectiveness_rating":9},{"strategy_name":"Cold water","description":"","category":"shock","effectiveness_rating":2}]}`}
	svc := NewSuggestionService(gemini, zerolog.Nop())

	got, err := svc.GenerateSuggestions(context.Background(), SuggestionContext{Mood: intPtr(3), Anxiety: intPtr(8)})
	if err != nil {
		t.Fatalf("GenerateSuggestions returned error: %v", err)
	}
	if len(gemini.prompts) != 1 || !strings.Contains(gemini.prompts[0], "Anxiety (0-10): 8") {
		t.Fatal("expected wellness context to reach the prompt")
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0].EffectivenessRating != 5 || got[0].Category != "breathing" {
		t.Errorf("unexpected first suggestion: %+v", got[0])
	}
	if got[1].Category != "other" || got[1].Description != defaultDescription {
		t.Errorf("unexpected second suggestion: %+v", got[1])
	}
}

func TestGenerateSuggestionsPropagatesGeminiError(t *testing.T) {
	wantErr := errors.New("upstream down")
	svc := NewSuggestionService(&fakeGemini{err: wantErr}, zerolog.Nop())
	if _, err := svc.GenerateSuggestions(context.Background(), SuggestionContext{}); !errors.Is(err, wantErr) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
