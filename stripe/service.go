// Package stripe provides integration with the Stripe payment service,
// creating checkout sessions and provisioning API-key accounts from webhook
// events.
package stripe

import (
	"context"
	"fmt"
	"time"

	"github.com/apiplans/checkout-backend/db"
	"github.com/apiplans/checkout-backend/errors"
	"github.com/apiplans/checkout-backend/internal"
	"github.com/apiplans/checkout-backend/notifications"
	"go.vocdoni.io/dvote/log"
)

// notificationTimeout bounds the delivery of the welcome email.
const notificationTimeout = 10 * time.Second

// Service provides the main business logic for Stripe operations
type Service struct {
	gateway     Gateway
	db          db.Storage
	catalog     *Catalog
	mail        notifications.NotificationService
	lockManager *LockManager
	newAPIKey   func() string
}

// NewService creates a new Stripe service. The mail service is optional;
// when nil no welcome email is sent.
func NewService(gateway Gateway, storage db.Storage, catalog *Catalog,
	mail notifications.NotificationService,
) (*Service, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if storage == nil {
		return nil, fmt.Errorf("database is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	return &Service{
		gateway:     gateway,
		db:          storage,
		catalog:     catalog,
		mail:        mail,
		lockManager: NewLockManager(),
		newAPIKey:   internal.NewAPIKey,
	}, nil
}

// CreateCheckoutSession resolves plan into its price and opens a hosted
// checkout session whose success and cancel pages live under origin. It
// returns the URL the browser must be redirected to.
func (s *Service) CreateCheckoutSession(ctx context.Context, plan, origin string) (string, error) {
	if plan == "" {
		return "", errors.ErrMissingPlan
	}
	priceID, ok := s.catalog.PriceID(plan)
	if !ok {
		return "", errors.ErrInvalidPlan.With(plan)
	}
	session, err := s.gateway.CreateCheckoutSession(ctx, &CheckoutSessionParams{
		PriceID:    priceID,
		Plan:       Plan(plan),
		SuccessURL: origin + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  origin + "/cancel",
		Quantity:   1,
	})
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return "", errors.ErrStripeNotConfigured
		}
		return "", errors.ErrStripeError.With(gatewayMessage(err))
	}
	log.Debugw("checkout session created", "session", session.ID, "plan", plan)
	return session.URL, nil
}

// SessionAPIKey returns the API key of the account provisioned for the
// customer of the given checkout session.
func (s *Service) SessionAPIKey(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.ErrMissingSessionID
	}
	session, err := s.gateway.CheckoutSession(ctx, sessionID)
	if err != nil {
		switch {
		case IsNotFound(err):
			return "", errors.ErrSessionNotFound.With(sessionID)
		case errors.Is(err, ErrNotConfigured):
			return "", errors.ErrStripeNotConfigured
		default:
			return "", errors.ErrStripeError.With(gatewayMessage(err))
		}
	}
	if session.CustomerEmail == "" {
		return "", errors.ErrEmailNotFound
	}
	account, err := s.db.AccountByEmail(ctx, session.CustomerEmail)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// expected while the webhook for this session is still in flight
			return "", errors.ErrAccountNotFound
		}
		return "", errors.ErrStoreError.WithErr(err)
	}
	return account.APIKey, nil
}

// StartLockCleanup periodically drops the per-customer locks that are not
// held, until ctx is done.
func (s *Service) StartLockCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.lockManager.CleanupLocks()
			}
		}
	}()
}
