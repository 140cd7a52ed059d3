package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"app/internal/config"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	billingsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	customerpkg "github.com/stripe/stripe-go/v82/customer"
	subscriptionpkg "github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeService manages the Stripe billing integration. Paid subscriptions
// map one price to one subscription tier.
type StripeService struct {
	cfg         *config.Config
	profileRepo repository.ProfileRepository
	logger      zerolog.Logger
}

// NewStripeService initializes the Stripe key and returns the service with a
// scoped logger.
func NewStripeService(cfg *config.Config, profileRepo repository.ProfileRepository, logger zerolog.Logger) *StripeService {
	stripe.Key = cfg.StripeSecretKey
	return &StripeService{
		cfg:         cfg,
		profileRepo: profileRepo,
		logger:      logger.With().Str("service", "StripeService").Logger(),
	}
}

// priceForTier maps a purchasable tier to its Stripe price ID.
func (s *StripeService) priceForTier(tier string) (string, error) {
	switch tier {
	case model.TierRecovery:
		return s.cfg.StripePriceRecovery, nil
	case model.TierEmpowerment:
		return s.cfg.StripePriceEmpowerment, nil
	default:
		return "", fmt.Errorf("invalid tier: %s", tier)
	}
}

// tierForPrice maps a Stripe price ID back to a subscription tier.
func (s *StripeService) tierForPrice(priceID string) string {
	switch priceID {
	case s.cfg.StripePriceRecovery:
		return model.TierRecovery
	case s.cfg.StripePriceEmpowerment:
		return model.TierEmpowerment
	default:
		return ""
	}
}

// resolveUserID finds the user for a webhook event from metadata or, failing
// that, the Stripe customer ID.
func (s *StripeService) resolveUserID(ctx context.Context, metadata map[string]string, customerID string) (string, error) {
	if userID, ok := metadata["user_id"]; ok && userID != "" {
		return userID, nil
	}
	if customerID == "" {
		return "", errors.New("cannot determine user: missing metadata and customer id")
	}
	s.logger.Warn().Str("stripe_customer_id", customerID).Msg("Missing user_id metadata; looking up profile by customer ID")
	p, err := s.profileRepo.GetProfileByStripeCustomerID(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("lookup profile by stripe customer id: %w", err)
	}
	if p == nil {
		return "", fmt.Errorf("no profile found for customer ID: %s", customerID)
	}
	return p.UserID, nil
}

// getOrCreateCustomer ensures a Stripe Customer exists for the profile.
func (s *StripeService) getOrCreateCustomer(ctx context.Context, profile *model.Profile) (string, error) {
	if profile.StripeCustomerID != nil && *profile.StripeCustomerID != "" {
		return *profile.StripeCustomerID, nil
	}
	params := &stripe.CustomerParams{
		Email:    stripe.String(profile.Email),
		Metadata: map[string]string{"user_id": profile.UserID},
	}
	cust, err := customerpkg.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", profile.UserID).Msg("Failed to create Stripe customer")
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	if err := s.profileRepo.UpdateStripeCustomerID(ctx, profile.UserID, cust.ID); err != nil {
		s.logger.Error().Err(err).Str("user_id", profile.UserID).Msg("Failed to store stripe customer id")
		return "", fmt.Errorf("store stripe customer id: %w", err)
	}
	return cust.ID, nil
}

// CreateCheckoutSession creates a Stripe Checkout session for upgrading to
// the given tier and returns its URL.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, userID, tier string) (string, error) {
	priceID, err := s.priceForTier(tier)
	if err != nil {
		return "", err
	}
	profile, err := s.profileRepo.GetProfile(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch profile for checkout session")
		return "", fmt.Errorf("fetch profile: %w", err)
	}
	if profile == nil {
		return "", ErrProfileNotFound
	}
	customerID, err := s.getOrCreateCustomer(ctx, profile)
	if err != nil {
		return "", err
	}
	sessParams := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{{Price: stripe.String(priceID), Quantity: stripe.Int64(1)}},
		Mode:               stripe.String(stripe.CheckoutSessionModeSubscription),
		SuccessURL:         stripe.String(s.cfg.StripePortalReturnURL + "?status=success"),
		CancelURL:          stripe.String(s.cfg.StripePortalReturnURL + "?status=cancel"),
		Metadata:           map[string]string{"user_id": userID},
	}
	sess, err := checkoutsession.New(sessParams)
	if err != nil {
		s.logger.Error().Err(err).Str("tier", tier).Msg("Failed to create Stripe checkout session")
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreatePortalSession creates a Stripe Customer Portal session and returns
// its URL.
func (s *StripeService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	profile, err := s.profileRepo.GetProfile(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch profile for portal session")
		return "", fmt.Errorf("fetch profile: %w", err)
	}
	if profile == nil || profile.StripeCustomerID == nil || *profile.StripeCustomerID == "" {
		s.logger.Error().Str("user_id", userID).Msg("No Stripe customer ID found when creating portal session")
		return "", fmt.Errorf("no stripe customer for user: %s", userID)
	}
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*profile.StripeCustomerID),
		ReturnURL: stripe.String(s.cfg.StripePortalReturnURL),
	}
	sess, err := billingsession.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create Stripe billing portal session")
		return "", fmt.Errorf("create billing portal session: %w", err)
	}
	return sess.URL, nil
}

// applyTierFromSubscription updates the user's tier from the price on the
// first subscription item.
func (s *StripeService) applyTierFromSubscription(ctx context.Context, userID string, sub *stripe.Subscription) error {
	if len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return fmt.Errorf("subscription %s has no priced items", sub.ID)
	}
	priceID := sub.Items.Data[0].Price.ID
	tier := s.tierForPrice(priceID)
	if tier == "" {
		return fmt.Errorf("unknown price ID: %s", priceID)
	}
	if err := s.profileRepo.UpdateTier(ctx, userID, tier); err != nil {
		return fmt.Errorf("update tier: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Str("tier", tier).Msg("Subscription tier updated")
	return nil
}

// HandleWebhook processes Stripe webhook events. Tier changes are driven
// entirely by verified webhooks, never by client requests.
func (s *StripeService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sig, s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}
	s.logger.Info().Str("event_type", string(event.Type)).Msg("Stripe webhook received")

	ctx := r.Context()
	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			s.logger.Error().Err(err).Msg("Invalid checkout.session data")
			http.Error(w, "invalid checkout.session data", http.StatusBadRequest)
			return
		}
		userID := cs.Metadata["user_id"]
		if userID == "" {
			s.logger.Error().Msg("Missing user_id in checkout session metadata")
			http.Error(w, "missing user_id in metadata", http.StatusBadRequest)
			return
		}
		if cs.Subscription == nil {
			s.logger.Error().Str("session_id", cs.ID).Msg("Checkout session has no subscription")
			http.Error(w, "checkout session has no subscription", http.StatusBadRequest)
			return
		}
		sub, err := s.fetchSubscription(cs.Subscription.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", cs.Subscription.ID).Msg("Failed to fetch subscription details")
			http.Error(w, "failed to fetch subscription details", http.StatusInternalServerError)
			return
		}
		if err := s.applyTierFromSubscription(ctx, userID, sub); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to apply tier on checkout.session.completed")
			http.Error(w, "failed to apply subscription tier", http.StatusInternalServerError)
			return
		}
	case "customer.subscription.updated":
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			s.logger.Error().Err(err).Msg("Invalid customer.subscription.updated payload")
			http.Error(w, "invalid subscription data", http.StatusBadRequest)
			return
		}
		userID, err := s.resolveUserID(ctx, ss.Metadata, customerIDOf(&ss))
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", ss.ID).Msg("Failed to determine user ID from subscription")
			http.Error(w, "failed to identify user", http.StatusInternalServerError)
			return
		}
		if ss.Status == stripe.SubscriptionStatusCanceled || ss.Status == stripe.SubscriptionStatusUnpaid {
			if err := s.profileRepo.UpdateTier(ctx, userID, model.TierFree); err != nil {
				s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to downgrade tier")
				http.Error(w, "failed to downgrade tier", http.StatusInternalServerError)
				return
			}
		} else if err := s.applyTierFromSubscription(ctx, userID, &ss); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to apply tier on customer.subscription.updated")
			http.Error(w, "failed to apply subscription tier", http.StatusInternalServerError)
			return
		}
	case "customer.subscription.deleted":
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			s.logger.Error().Err(err).Msg("Invalid customer.subscription.deleted payload")
			http.Error(w, "invalid subscription data", http.StatusBadRequest)
			return
		}
		userID, err := s.resolveUserID(ctx, ss.Metadata, customerIDOf(&ss))
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", ss.ID).Msg("Failed to determine user ID from subscription")
			http.Error(w, "failed to identify user", http.StatusInternalServerError)
			return
		}
		if err := s.profileRepo.UpdateTier(ctx, userID, model.TierFree); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to downgrade tier on customer.subscription.deleted")
			http.Error(w, "failed to downgrade tier", http.StatusInternalServerError)
			return
		}
	default:
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Unhandled Stripe webhook event")
	}
	w.WriteHeader(http.StatusOK)
}

func (s *StripeService) fetchSubscription(id string) (*stripe.Subscription, error) {
	return subscriptionpkg.Get(id, nil)
}

func customerIDOf(sub *stripe.Subscription) string {
	if sub.Customer == nil {
		return ""
	}
	return sub.Customer.ID
}
