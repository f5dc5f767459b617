package api

const (
	// checkout routes

	// POST /create-checkout-session to start a hosted checkout for a plan
	createCheckoutSessionEndpoint = "/create-checkout-session"
	// GET /session-details?session_id=... to get the API key of a paid session
	sessionDetailsEndpoint = "/session-details"

	// webhook routes

	// POST /stripe-webhook to receive Stripe events
	stripeWebhookEndpoint = "/stripe-webhook"
	// POST /api/stripe-webhook is the path used by the hosted deployment
	legacyStripeWebhookEndpoint = "/api/stripe-webhook"

	// service routes

	// GET /health to check the service is up
	healthEndpoint = "/health"
	// GET /ping liveness probe
	pingEndpoint = "/ping"
	// GET /metrics to scrape the Prometheus metrics
	metricsEndpoint = "/metrics"

	// static pages, only served when a web directory is configured

	successPage = "/success"
	cancelPage  = "/cancel"
)
