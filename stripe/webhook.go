package stripe

import (
	"context"
	"encoding/json"

	"github.com/apiplans/checkout-backend/db"
	"github.com/apiplans/checkout-backend/errors"
	"github.com/apiplans/checkout-backend/notifications/mailtemplates"
	stripeapi "github.com/stripe/stripe-go/v81"
	"go.vocdoni.io/dvote/log"
)

// Action is the outcome of processing a webhook event.
type Action string

const (
	ActionCreated  Action = "created"
	ActionEnabled  Action = "enabled"
	ActionDisabled Action = "disabled"
	ActionIgnored  Action = "ignored"
)

// Message is the plain text acknowledgement returned to Stripe.
func (a Action) Message() string {
	switch a {
	case ActionCreated, ActionEnabled:
		return "User stored"
	case ActionDisabled:
		return "User disabled"
	default:
		return "Webhook received"
	}
}

// HandleWebhookEvent verifies the signature of a raw webhook delivery and
// applies the event. Nothing is read from or written to the store unless the
// signature is valid. Redeliveries are safe since every handler is
// idempotent per email.
func (s *Service) HandleWebhookEvent(ctx context.Context, payload []byte, signatureHeader string) (Action, error) {
	event, err := s.gateway.ValidateWebhookEvent(payload, signatureHeader)
	if err != nil {
		var stripeErr *StripeError
		if errors.As(err, &stripeErr) {
			return "", errors.ErrWebhookSignature.With(stripeErr.Message)
		}
		return "", errors.ErrWebhookSignature.WithErr(err)
	}
	return s.HandleEvent(ctx, event)
}

// HandleEvent applies an already verified event.
func (s *Service) HandleEvent(ctx context.Context, event *stripeapi.Event) (Action, error) {
	if event.Data == nil {
		return "", errors.ErrMalformedEvent.With("missing data object")
	}
	var (
		action Action
		err    error
	)
	switch event.Type {
	case stripeapi.EventTypeCheckoutSessionCompleted:
		action, err = s.handleCheckoutCompleted(ctx, event)
	case stripeapi.EventTypeCustomerSubscriptionDeleted:
		action, err = s.handleSubscriptionEnded(ctx, event)
	case stripeapi.EventTypeCustomerSubscriptionUpdated:
		action, err = s.handleSubscriptionUpdated(ctx, event)
	default:
		log.Debugf("stripe webhook: received unhandled event type %s (id %s)", event.Type, event.ID)
		action = ActionIgnored
	}
	if err != nil {
		return "", err
	}
	return action, nil
}

// handleCheckoutCompleted provisions the account of the paying customer, or
// re-enables it keeping its API key when the customer already had one.
func (s *Service) handleCheckoutCompleted(ctx context.Context, event *stripeapi.Event) (Action, error) {
	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return "", errors.ErrMalformedEvent.WithErr(err)
	}
	if session.CustomerDetails == nil || session.CustomerDetails.Email == "" {
		return "", errors.ErrMissingEmail
	}
	email := session.CustomerDetails.Email

	unlock := s.lockManager.LockEmail(email)
	defer unlock()

	account, err := s.db.AccountByEmail(ctx, email)
	switch {
	case err == nil:
		return s.reactivate(ctx, event, account)
	case !errors.Is(err, db.ErrNotFound):
		return "", errors.ErrStoreError.WithErr(err)
	}

	account = &db.Account{
		Email:   email,
		APIKey:  s.newAPIKey(),
		Enabled: true,
	}
	if err := s.db.CreateAccount(ctx, account); err != nil {
		if !errors.Is(err, db.ErrAlreadyExists) {
			return "", errors.ErrStoreError.WithErr(err)
		}
		// another instance provisioned this email first, keep its key
		existing, err := s.db.AccountByEmail(ctx, email)
		if err != nil {
			return "", errors.ErrStoreError.WithErr(err)
		}
		return s.reactivate(ctx, event, existing)
	}
	log.Infow("stripe webhook: account created",
		"event", event.ID, "email", email, "plan", session.Metadata["plan"])
	s.sendWelcome(ctx, account, session.Metadata["plan"])
	return ActionCreated, nil
}

func (s *Service) reactivate(ctx context.Context, event *stripeapi.Event, account *db.Account) (Action, error) {
	if err := s.db.SetAccountEnabled(ctx, account.ID, true); err != nil {
		return "", errors.ErrStoreError.WithErr(err)
	}
	log.Infow("stripe webhook: account enabled", "event", event.ID, "email", account.Email)
	return ActionEnabled, nil
}

// handleSubscriptionUpdated disables the customer account when the
// subscription is no longer active.
func (s *Service) handleSubscriptionUpdated(ctx context.Context, event *stripeapi.Event) (Action, error) {
	subscription, err := parseSubscription(event)
	if err != nil {
		return "", err
	}
	if subscription.Status == stripeapi.SubscriptionStatusActive {
		log.Debugw("stripe webhook: subscription still active", "event", event.ID, "subscription", subscription.ID)
		return ActionIgnored, nil
	}
	return s.disableSubscriber(ctx, event, subscription)
}

func (s *Service) handleSubscriptionEnded(ctx context.Context, event *stripeapi.Event) (Action, error) {
	subscription, err := parseSubscription(event)
	if err != nil {
		return "", err
	}
	return s.disableSubscriber(ctx, event, subscription)
}

// disableSubscriber resolves the subscription customer to get its current
// email and disables the matching account.
func (s *Service) disableSubscriber(ctx context.Context, event *stripeapi.Event,
	subscription *stripeapi.Subscription,
) (Action, error) {
	if subscription.Customer == nil || subscription.Customer.ID == "" {
		log.Warnw("stripe webhook: subscription without customer", "event", event.ID, "subscription", subscription.ID)
		return ActionIgnored, nil
	}
	customer, err := s.gateway.Customer(ctx, subscription.Customer.ID)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return "", errors.ErrStripeNotConfigured
		}
		return "", errors.ErrStripeError.With(gatewayMessage(err))
	}
	if customer.Deleted || customer.Email == "" {
		log.Infow("stripe webhook: customer without email, nothing to disable",
			"event", event.ID, "customer", customer.ID)
		return ActionIgnored, nil
	}

	unlock := s.lockManager.LockEmail(customer.Email)
	defer unlock()

	if err := s.db.SetAccountEnabledByEmail(ctx, customer.Email, false); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			log.Infow("stripe webhook: no account to disable", "event", event.ID, "email", customer.Email)
			return ActionIgnored, nil
		}
		return "", errors.ErrStoreError.WithErr(err)
	}
	log.Infow("stripe webhook: account disabled",
		"event", event.ID, "email", customer.Email, "status", subscription.Status)
	return ActionDisabled, nil
}

func parseSubscription(event *stripeapi.Event) (*stripeapi.Subscription, error) {
	var subscription stripeapi.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return nil, errors.ErrMalformedEvent.WithErr(err)
	}
	return &subscription, nil
}

// sendWelcome emails the new API key to the customer. Failures are logged
// and never fail the webhook.
func (s *Service) sendWelcome(ctx context.Context, account *db.Account, plan string) {
	if s.mail == nil {
		return
	}
	notification, err := mailtemplates.WelcomeNotification.ExecTemplate(mailtemplates.WelcomeData{
		Email:  account.Email,
		APIKey: account.APIKey,
		Plan:   plan,
	})
	if err != nil {
		log.Warnw("could not render welcome email", "error", err)
		return
	}
	notification.ToAddress = account.Email
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notificationTimeout)
	defer cancel()
	if err := s.mail.SendNotification(ctx, notification); err != nil {
		log.Warnw("could not send welcome email", "email", account.Email, "error", err)
	}
}
