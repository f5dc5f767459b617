// Package api provides the HTTP API of the checkout backend: hosted checkout
// sessions, the Stripe webhook and the API key lookup of a paid session.
package api

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/apiplans/checkout-backend/api/apicommon"
	"github.com/apiplans/checkout-backend/errors"
	"github.com/apiplans/checkout-backend/stripe"
	"github.com/apiplans/checkout-backend/validator"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.vocdoni.io/dvote/log"
)

// Config holds the dependencies and listen address of the API server.
type Config struct {
	Host    string
	Port    int
	Service *stripe.Service
	// WebDir, when set, is served as a static site at the root path.
	WebDir string
}

// API type represents the API HTTP server.
type API struct {
	host      string
	port      int
	service   *stripe.Service
	webDir    string
	validator *validator.Validator
	metrics   *metrics
	server    *http.Server
}

// New creates a new API HTTP server. It does not start the server. Use Start() for that.
func New(conf *Config) *API {
	if conf == nil {
		return nil
	}
	v := validator.New()
	v.RequiredError("Plan", errors.ErrMissingPlan)
	return &API{
		host:      conf.Host,
		port:      conf.Port,
		service:   conf.Service,
		webDir:    conf.WebDir,
		validator: v,
		metrics:   newMetrics(),
	}
}

// Start starts the API HTTP server (non blocking).
func (a *API) Start() {
	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.host, a.port),
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
}

// Shutdown gracefully stops the server started with Start.
func (a *API) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Router returns the HTTP handler with every route and middleware.
func (a *API) Router() http.Handler {
	return a.initRouter()
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() http.Handler {
	// Create the router with a basic middleware stack
	r := chi.NewRouter()
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Stripe-Signature"},
		MaxAge:         300, // Maximum value not ignored by any of major browsers
	}).Handler)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(a.metrics.middleware)
	r.Use(middleware.Throttle(100))
	r.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	r.Use(middleware.Timeout(45 * time.Second))

	// create a hosted checkout session for a plan
	log.Infow("new route", "method", "POST", "path", createCheckoutSessionEndpoint)
	r.With(a.validator.ValidateMiddleware(CheckoutRequest{})).
		Post(createCheckoutSessionEndpoint, a.createCheckoutSessionHandler)
	// get the API key issued for a checkout session
	log.Infow("new route", "method", "GET", "path", sessionDetailsEndpoint)
	r.Get(sessionDetailsEndpoint, a.sessionDetailsHandler)
	// stripe webhook
	log.Infow("new route", "method", "POST", "path", stripeWebhookEndpoint)
	r.Post(stripeWebhookEndpoint, a.stripeWebhookHandler)
	log.Infow("new route", "method", "POST", "path", legacyStripeWebhookEndpoint)
	r.Post(legacyStripeWebhookEndpoint, a.stripeWebhookHandler)
	// health check
	log.Infow("new route", "method", "GET", "path", healthEndpoint)
	r.Get(healthEndpoint, func(w http.ResponseWriter, _ *http.Request) {
		apicommon.HTTPWriteJSON(w, &HealthResponse{Status: "ok"})
	})
	// ping
	log.Infow("new route", "method", "GET", "path", pingEndpoint)
	r.Get(pingEndpoint, func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte(".")); err != nil {
			log.Warnw("failed to write ping response", "error", err)
		}
	})
	// prometheus metrics
	log.Infow("new route", "method", "GET", "path", metricsEndpoint)
	r.Method(http.MethodGet, metricsEndpoint, a.metrics.handler())

	if a.webDir != "" {
		a.staticRoutes(r)
	}
	return r
}

// staticRoutes serves the configured web directory, mapping the checkout
// return pages to their html files.
func (a *API) staticRoutes(r chi.Router) {
	page := func(name string) http.HandlerFunc {
		file := filepath.Join(a.webDir, name)
		return func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, file)
		}
	}
	log.Infow("new route", "method", "GET", "path", successPage, "dir", a.webDir)
	r.Get(successPage, page("success.html"))
	log.Infow("new route", "method", "GET", "path", cancelPage, "dir", a.webDir)
	r.Get(cancelPage, page("cancel.html"))
	log.Infow("new route", "method", "GET", "path", "/*", "dir", a.webDir)
	r.Handle("/*", http.FileServer(http.Dir(a.webDir)))
}
