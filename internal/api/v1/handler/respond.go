package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeQuotaExceeded renders the 429 accounting body for a denied quota check.
func writeQuotaExceeded(w http.ResponseWriter, feature string, q *service.QuotaResult) {
	writeJSON(w, http.StatusTooManyRequests, dto.QuotaExceededDTO{
		Allowed:         false,
		Error:           "Usage limit exceeded",
		Feature:         feature,
		Limit:           q.Cap,
		Used:            q.Used,
		Remaining:       q.Remaining,
		UpgradeRequired: q.UpgradeRequired,
	})
}

// userIDFromRequest returns the authenticated user ID, writing a 401 when the
// auth middleware did not run.
func userIDFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || claims.Subject == "" {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return "", false
	}
	return claims.Subject, true
}

// parseListQuery reads the limit and cursor query parameters shared by all
// list endpoints.
func parseListQuery(w http.ResponseWriter, r *http.Request) (int, *time.Time, bool) {
	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return 0, nil, false
		}
		limit = service.ClampLimit(n, defaultPageSize, maxPageSize)
	}
	before, err := service.ParseCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cursor")
		return 0, nil, false
	}
	return limit, before, true
}
