package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestGenerateTextSendsGenerationConfig(t *testing.T) {
	var gotPath, gotKey string
	var gotBody geminiRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello "},{"text":"world"}]}}]}`))
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "test-key", "gemini-1.5-flash", 5*time.Second, zerolog.Nop())
	got, err := client.GenerateText(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("GenerateText returned error: %v", err)
	}
	if got != "hello world" {
		t.Errorf("expected concatenated parts, got %q", got)
	}
	if gotPath != "/v1beta/models/gemini-1.5-flash:generateContent" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("unexpected api key %q", gotKey)
	}
	if gotBody.GenerationConfig.Temperature != geminiTemperature {
		t.Errorf("temperature = %v, want %v", gotBody.GenerationConfig.Temperature, geminiTemperature)
	}
	if gotBody.GenerationConfig.MaxOutputTokens != geminiMaxOutputTokens {
		t.Errorf("maxOutputTokens = %d, want %d", gotBody.GenerationConfig.MaxOutputTokens, geminiMaxOutputTokens)
	}
	if len(gotBody.Contents) != 1 || len(gotBody.Contents[0].Parts) != 1 || gotBody.Contents[0].Parts[0].Text != "say hello" {
		t.Errorf("unexpected request contents: %+v", gotBody.Contents)
	}
}

func TestGenerateTextEmbedsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"quota exhausted"}`))
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "k", "m", 5*time.Second, zerolog.Nop())
	_, err := client.GenerateText(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "quota exhausted") {
		t.Errorf("error should embed upstream status and body, got %v", err)
	}
}

func TestGenerateTextNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "k", "m", 5*time.Second, zerolog.Nop())
	if _, err := client.GenerateText(context.Background(), "hi"); err == nil {
		t.Fatal("expected error when no candidates are returned")
	}
}

func TestGenerateTextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "k", "m", 50*time.Millisecond, zerolog.Nop())
	if _, err := client.GenerateText(context.Background(), "hi"); err == nil {
		t.Fatal("expected timeout error")
	}
}
