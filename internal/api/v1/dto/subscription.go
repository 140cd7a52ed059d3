package dto

// CheckoutRequestDTO is used for incoming checkout session requests
type CheckoutRequestDTO struct {
	Tier string `json:"tier" validate:"required,oneof=recovery empowerment"`
}

// CheckoutResponseDTO carries the Stripe Checkout session URL.
type CheckoutResponseDTO struct {
	URL string `json:"url"`
}

// PortalResponseDTO carries the Stripe Customer Portal session URL.
type PortalResponseDTO struct {
	URL string `json:"url"`
}
