package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const testSecret = "test-jwt-secret"

func signTestToken(t *testing.T, secret, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": "user@example.com",
		"exp":   expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

func runAuth(t *testing.T, authHeader string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	handler := AuthMiddleware(testSecret, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			t.Error("expected claims in request context")
		} else if claims.Subject != "user-123" {
			t.Errorf("unexpected subject %q", claims.Subject)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/journal", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, called
}

func TestAuthMissingHeader(t *testing.T) {
	rec, called := runAuth(t, "")
	if called {
		t.Error("handler must not run without a token")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Authorization header required"}` {
		t.Errorf("unexpected body %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestAuthMalformedHeader(t *testing.T) {
	rec, called := runAuth(t, "Token abc")
	if called {
		t.Error("handler must not run with a malformed header")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Invalid token"}` {
		t.Errorf("unexpected body %q", got)
	}
}

func TestAuthBadSignature(t *testing.T) {
	token := signTestToken(t, "wrong-secret", "user-123", time.Now().Add(time.Hour))
	rec, called := runAuth(t, "Bearer "+token)
	if called {
		t.Error("handler must not run with a bad signature")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Invalid token"}` {
		t.Errorf("unexpected body %q", got)
	}
}

func TestAuthExpiredToken(t *testing.T) {
	token := signTestToken(t, testSecret, "user-123", time.Now().Add(-time.Hour))
	rec, called := runAuth(t, "Bearer "+token)
	if called {
		t.Error("handler must not run with an expired token")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthValidToken(t *testing.T) {
	token := signTestToken(t, testSecret, "user-123", time.Now().Add(time.Hour))
	rec, called := runAuth(t, "Bearer "+token)
	if !called {
		t.Fatal("handler should run with a valid token")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
