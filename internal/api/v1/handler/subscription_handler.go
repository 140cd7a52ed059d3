package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

// SubscriptionHandler handles billing endpoints
type SubscriptionHandler struct {
	stripeService *service.StripeService
	validate      *validator.Validate
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(stripeService *service.StripeService, validate *validator.Validate) *SubscriptionHandler {
	return &SubscriptionHandler{stripeService: stripeService, validate: validate}
}

// RegisterRoutes mounts billing routes. The webhook route is verified by
// Stripe signature instead of a bearer token.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/billing/checkout", authMw(http.HandlerFunc(h.createCheckoutSession)))
	mux.Handle("/billing/portal", authMw(http.HandlerFunc(h.createPortalSession)))
	mux.HandleFunc("/billing/webhook", h.stripeService.HandleWebhook)
}

// createCheckoutSession godoc
// @Summary Create a checkout session for a tier upgrade
// @Tags billing
// @Accept json
// @Produce json
// @Param checkout body dto.CheckoutRequestDTO true "Checkout request"
// @Success 200 {object} dto.CheckoutResponseDTO
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /billing/checkout [post]
func (h *SubscriptionHandler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}
	var req dto.CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	url, err := h.stripeService.CreateCheckoutSession(r.Context(), userID, req.Tier)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create checkout session")
		return
	}
	writeJSON(w, http.StatusOK, dto.CheckoutResponseDTO{URL: url})
}

// createPortalSession godoc
// @Summary Create a customer portal session
// @Tags billing
// @Produce json
// @Success 200 {object} dto.PortalResponseDTO
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /billing/portal [post]
func (h *SubscriptionHandler) createPortalSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}
	url, err := h.stripeService.CreatePortalSession(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create portal session")
		return
	}
	writeJSON(w, http.StatusOK, dto.PortalResponseDTO{URL: url})
}
