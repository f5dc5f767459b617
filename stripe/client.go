package stripe

import (
	"context"
	"errors"

	stripeapi "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	stripewebhook "github.com/stripe/stripe-go/v81/webhook"
)

// Gateway is the subset of the Stripe API the checkout flow depends on.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSession, error)
	CheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	Customer(ctx context.Context, customerID string) (*Customer, error)
	ValidateWebhookEvent(payload []byte, signatureHeader string) (*stripeapi.Event, error)
}

// CheckoutSessionParams holds parameters for creating a checkout session
type CheckoutSessionParams struct {
	PriceID    string
	Plan       Plan
	SuccessURL string
	CancelURL  string
	Quantity   int64
}

// CheckoutSession is the part of a Stripe checkout session used by the service.
type CheckoutSession struct {
	ID            string
	URL           string
	Status        string
	Plan          Plan
	CustomerEmail string
}

// Customer is the part of a Stripe customer used by the service.
type Customer struct {
	ID      string
	Email   string
	Deleted bool
}

// Client wraps the Stripe API client with additional functionality
type Client struct {
	config *Config
	api    *client.API
}

// NewClient creates a new Stripe client with the given configuration. When
// backends is nil the default Stripe backends are used. A client without an
// API key can still validate webhooks, but every API call fails with
// ErrNotConfigured.
func NewClient(config *Config, backends *stripeapi.Backends) *Client {
	if config == nil {
		config = &Config{}
	}
	c := &Client{config: config}
	if config.APIKey != "" {
		c.api = &client.API{}
		c.api.Init(config.APIKey, backends)
	}
	return c
}

// ValidateWebhookEvent validates and parses a webhook event. The API version
// of the event is not checked since only stable fields are read.
func (c *Client) ValidateWebhookEvent(payload []byte, signatureHeader string) (*stripeapi.Event, error) {
	if c.config.WebhookSecret == "" {
		return nil, NewStripeError(ErrWebhookValidation.Code, "webhook secret is not configured", nil)
	}
	if signatureHeader == "" {
		return nil, NewStripeError(ErrWebhookValidation.Code, "missing Stripe signature header", nil)
	}
	event, err := stripewebhook.ConstructEventWithOptions(payload, signatureHeader, c.config.WebhookSecret,
		stripewebhook.ConstructEventOptions{
			Tolerance:                stripewebhook.DefaultTolerance,
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		return nil, NewStripeError(ErrWebhookValidation.Code, err.Error(), err)
	}
	return &event, nil
}

// CreateCheckoutSession creates a hosted checkout session in subscription
// mode for a single price. The plan tag is stored in the session metadata.
// API description https://docs.stripe.com/api/checkout/sessions
func (c *Client) CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSession, error) {
	if c.api == nil {
		return nil, ErrNotConfigured
	}
	if params.Quantity == 0 {
		params.Quantity = 1
	}
	checkoutParams := &stripeapi.CheckoutSessionParams{
		// Subscription mode
		Mode: stripeapi.String(string(stripeapi.CheckoutSessionModeSubscription)),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				Price:    stripeapi.String(params.PriceID),
				Quantity: stripeapi.Int64(params.Quantity),
			},
		},
		SuccessURL:               stripeapi.String(params.SuccessURL),
		CancelURL:                stripeapi.String(params.CancelURL),
		AllowPromotionCodes:      stripeapi.Bool(true),
		BillingAddressCollection: stripeapi.String(string(stripeapi.CheckoutSessionBillingAddressCollectionAuto)),
	}
	checkoutParams.Context = ctx
	checkoutParams.AddMetadata("plan", string(params.Plan))

	session, err := c.api.CheckoutSessions.New(checkoutParams)
	if err != nil {
		return nil, apiError("failed to create checkout session", err)
	}
	return newCheckoutSession(session), nil
}

// CheckoutSession retrieves a checkout session by ID
func (c *Client) CheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	if c.api == nil {
		return nil, ErrNotConfigured
	}
	params := &stripeapi.CheckoutSessionParams{}
	params.Context = ctx
	session, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, apiError("failed to get checkout session", err)
	}
	return newCheckoutSession(session), nil
}

// Customer retrieves a customer by ID
func (c *Client) Customer(ctx context.Context, customerID string) (*Customer, error) {
	if c.api == nil {
		return nil, ErrNotConfigured
	}
	params := &stripeapi.CustomerParams{}
	params.Context = ctx
	customer, err := c.api.Customers.Get(customerID, params)
	if err != nil {
		return nil, apiError("failed to get customer", err)
	}
	return &Customer{
		ID:      customer.ID,
		Email:   customer.Email,
		Deleted: customer.Deleted,
	}, nil
}

func newCheckoutSession(session *stripeapi.CheckoutSession) *CheckoutSession {
	cs := &CheckoutSession{
		ID:     session.ID,
		URL:    session.URL,
		Status: string(session.Status),
		Plan:   Plan(session.Metadata["plan"]),
	}
	if session.CustomerDetails != nil {
		cs.CustomerEmail = session.CustomerDetails.Email
	}
	return cs
}

// IsNotFound reports whether err signals a missing Stripe resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrResourceMissing)
}

var _ Gateway = (*Client)(nil)
