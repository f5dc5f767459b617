package stripe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	stripeapi "github.com/stripe/stripe-go/v81"
	stripewebhook "github.com/stripe/stripe-go/v81/webhook"
)

// fakeStripeAPI serves the few Stripe endpoints used by Client.
type fakeStripeAPI struct {
	mu       sync.Mutex
	lastForm url.Values
}

func (f *fakeStripeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/checkout/sessions":
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.lastForm = r.PostForm
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"id":       "cs_test_new",
			"object":   "checkout.session",
			"url":      "https://checkout.stripe.com/c/pay/cs_test_new",
			"status":   "open",
			"metadata": map[string]string{"plan": r.PostForm.Get("metadata[plan]")},
		})
	case r.Method == http.MethodGet && r.URL.Path == "/v1/checkout/sessions/cs_test_paid":
		writeJSON(w, http.StatusOK, map[string]any{
			"id":               "cs_test_paid",
			"object":           "checkout.session",
			"status":           "complete",
			"metadata":         map[string]string{"plan": "starter"},
			"customer_details": map[string]any{"email": "alice@example.com"},
		})
	case r.Method == http.MethodGet && r.URL.Path == "/v1/customers/cus_alice":
		writeJSON(w, http.StatusOK, map[string]any{
			"id":     "cus_alice",
			"object": "customer",
			"email":  "alice@example.com",
		})
	case r.Method == http.MethodGet && r.URL.Path == "/v1/customers/cus_gone":
		writeJSON(w, http.StatusOK, map[string]any{
			"id":      "cus_gone",
			"object":  "customer",
			"deleted": true,
		})
	case r.Method == http.MethodGet && r.URL.Path == "/v1/customers/cus_broken":
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": map[string]any{"type": "api_error", "message": "something went wrong"},
		})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{
				"type":    "invalid_request_error",
				"code":    "resource_missing",
				"message": "No such resource: " + r.URL.Path,
			},
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(c *qt.C) (*Client, *fakeStripeAPI) {
	api := &fakeStripeAPI{}
	srv := httptest.NewServer(api)
	c.Cleanup(srv.Close)
	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, &stripeapi.BackendConfig{
		URL:               stripeapi.String(srv.URL),
		MaxNetworkRetries: stripeapi.Int64(0),
		LeveledLogger:     &stripeapi.LeveledLogger{Level: stripeapi.LevelNull},
	})
	client := NewClient(&Config{APIKey: "sk_test_123", WebhookSecret: testWebhookSecret},
		&stripeapi.Backends{API: backend, Connect: backend, Uploads: backend})
	return client, api
}

func TestClientCreateCheckoutSession(t *testing.T) {
	c := qt.New(t)
	client, api := newTestClient(c)

	session, err := client.CreateCheckoutSession(context.Background(), &CheckoutSessionParams{
		PriceID:    "price_starter",
		Plan:       PlanStarter,
		SuccessURL: "https://plans.example.com/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://plans.example.com/cancel",
	})
	c.Assert(err, qt.IsNil)
	c.Assert(session.ID, qt.Equals, "cs_test_new")
	c.Assert(session.URL, qt.Equals, "https://checkout.stripe.com/c/pay/cs_test_new")
	c.Assert(session.Plan, qt.Equals, PlanStarter)

	api.mu.Lock()
	form := api.lastForm
	api.mu.Unlock()
	c.Assert(form.Get("mode"), qt.Equals, "subscription")
	c.Assert(form.Get("line_items[0][price]"), qt.Equals, "price_starter")
	c.Assert(form.Get("line_items[0][quantity]"), qt.Equals, "1")
	c.Assert(form.Get("allow_promotion_codes"), qt.Equals, "true")
	c.Assert(form.Get("billing_address_collection"), qt.Equals, "auto")
	c.Assert(form.Get("metadata[plan]"), qt.Equals, "starter")
	c.Assert(form.Get("success_url"), qt.Equals, "https://plans.example.com/success?session_id={CHECKOUT_SESSION_ID}")
	c.Assert(form.Get("cancel_url"), qt.Equals, "https://plans.example.com/cancel")
}

func TestClientCheckoutSession(t *testing.T) {
	c := qt.New(t)
	client, _ := newTestClient(c)
	ctx := context.Background()

	session, err := client.CheckoutSession(ctx, "cs_test_paid")
	c.Assert(err, qt.IsNil)
	c.Assert(session.CustomerEmail, qt.Equals, "alice@example.com")
	c.Assert(session.Status, qt.Equals, "complete")
	c.Assert(session.Plan, qt.Equals, PlanStarter)

	_, err = client.CheckoutSession(ctx, "cs_test_unknown")
	c.Assert(IsNotFound(err), qt.IsTrue)
	c.Assert(gatewayMessage(err), qt.Equals, "No such resource: /v1/checkout/sessions/cs_test_unknown")
}

func TestClientCustomer(t *testing.T) {
	c := qt.New(t)
	client, _ := newTestClient(c)
	ctx := context.Background()

	customer, err := client.Customer(ctx, "cus_alice")
	c.Assert(err, qt.IsNil)
	c.Assert(customer, qt.DeepEquals, &Customer{ID: "cus_alice", Email: "alice@example.com"})

	customer, err = client.Customer(ctx, "cus_gone")
	c.Assert(err, qt.IsNil)
	c.Assert(customer.Deleted, qt.IsTrue)

	_, err = client.Customer(ctx, "cus_broken")
	c.Assert(err, qt.ErrorIs, ErrAPICallFailed)
	c.Assert(IsNotFound(err), qt.IsFalse)
}

func TestClientWithoutAPIKey(t *testing.T) {
	c := qt.New(t)
	client := NewClient(&Config{}, nil)
	ctx := context.Background()

	_, err := client.CreateCheckoutSession(ctx, &CheckoutSessionParams{PriceID: "price_starter"})
	c.Assert(err, qt.ErrorIs, ErrNotConfigured)
	_, err = client.CheckoutSession(ctx, "cs_test")
	c.Assert(err, qt.ErrorIs, ErrNotConfigured)
	_, err = client.Customer(ctx, "cus_test")
	c.Assert(err, qt.ErrorIs, ErrNotConfigured)
}

func TestClientValidateWebhookEvent(t *testing.T) {
	c := qt.New(t)
	client, _ := newTestClient(c)

	payload := []byte(`{"id":"evt_1","object":"event","type":"invoice.paid","api_version":"2020-08-27","data":{"object":{"id":"in_1","object":"invoice"}}}`)
	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	// an API version other than the library's is accepted
	event, err := client.ValidateWebhookEvent(payload, signed.Header)
	c.Assert(err, qt.IsNil)
	c.Assert(string(event.Type), qt.Equals, "invoice.paid")

	stale := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now().Add(-time.Hour),
	})
	_, err = client.ValidateWebhookEvent(payload, stale.Header)
	c.Assert(err, qt.ErrorIs, ErrWebhookValidation)

	wrongSecret := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_other",
		Timestamp: time.Now(),
	})
	_, err = client.ValidateWebhookEvent(payload, wrongSecret.Header)
	c.Assert(err, qt.ErrorIs, ErrWebhookValidation)

	_, err = client.ValidateWebhookEvent(payload, "")
	c.Assert(err, qt.ErrorMatches, ".*missing Stripe signature header")
	c.Assert(strings.Contains(err.Error(), "webhook_validation"), qt.IsTrue)
}
