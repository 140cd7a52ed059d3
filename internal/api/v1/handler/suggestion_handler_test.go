package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

type fakeSuggestionService struct {
	got         service.SuggestionContext
	suggestions []service.Suggestion
	err         error
}

func (f *fakeSuggestionService) GenerateSuggestions(ctx context.Context, sc service.SuggestionContext) ([]service.Suggestion, error) {
	f.got = sc
	return f.suggestions, f.err
}

func newSuggestionMux(svc service.SuggestionService) *http.ServeMux {
	mux := http.NewServeMux()
	h := NewSuggestionHandler(svc, validator.New(validator.WithRequiredStructEnabled()))
	h.RegisterRoutes(mux, testAuthMw)
	return mux
}

func TestGenerateSuggestionsReadsContextObject(t *testing.T) {
	svc := &fakeSuggestionService{suggestions: []service.Suggestion{{
		StrategyName:        "Box breathing",
		Description:         "Slow square breaths.",
		Category:            "breathing",
		EffectivenessRating: 4,
	}}}
	mux := newSuggestionMux(svc)

	req := httptest.NewRequest(http.MethodPost, "/wellness/suggestions", strings.NewReader(`{"context":{"mood":3,"anxiety":8,"note":"rough week"}}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if svc.got.Mood == nil || *svc.got.Mood != 3 {
		t.Errorf("mood = %v, want 3", svc.got.Mood)
	}
	if svc.got.Anxiety == nil || *svc.got.Anxiety != 8 {
		t.Errorf("anxiety = %v, want 8", svc.got.Anxiety)
	}
	if svc.got.Energy != nil {
		t.Errorf("energy = %v, want nil", svc.got.Energy)
	}
	if svc.got.Note != "rough week" {
		t.Errorf("note = %q", svc.got.Note)
	}

	var body struct {
		Suggestions []struct {
			StrategyName string `json:"strategy_name"`
		} `json:"suggestions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Suggestions) != 1 || body.Suggestions[0].StrategyName != "Box breathing" {
		t.Errorf("unexpected response body: %s", rec.Body.String())
	}
}

func TestGenerateSuggestionsErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{service.ErrNoStructuredData, "AI did not return structured data"},
		{service.ErrUnparsableResponse, "Failed to parse AI response"},
		{service.ErrInvalidSuggestionFormat, "Invalid AI response format"},
	}
	for _, tc := range cases {
		mux := newSuggestionMux(&fakeSuggestionService{err: tc.err})
		req := httptest.NewRequest(http.MethodPost, "/wellness/suggestions", strings.NewReader(`{"context":{"mood":3}}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%v: status = %d, want 500", tc.err, rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["error"] != tc.want {
			t.Errorf("%v: error = %q, want %q", tc.err, body["error"], tc.want)
		}
	}
}
