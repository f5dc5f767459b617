package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/apiplans/checkout-backend/db"
	"github.com/apiplans/checkout-backend/db/sqldb"
	"github.com/apiplans/checkout-backend/notifications"
	qt "github.com/frankban/quicktest"
	stripeapi "github.com/stripe/stripe-go/v81"
	stripewebhook "github.com/stripe/stripe-go/v81/webhook"
)

const testWebhookSecret = "whsec_test_secret"

var testPrices = map[Plan]string{
	PlanStarter:      "price_starter",
	PlanProfessional: "price_professional",
	PlanEnterprise:   "price_enterprise",
}

// fakeGateway records checkout requests and serves canned sessions and
// customers. Webhook validation uses the real signature check.
type fakeGateway struct {
	mu        sync.Mutex
	created   []*CheckoutSessionParams
	sessions  map[string]*CheckoutSession
	customers map[string]*Customer
	err       error
	verifier  *Client
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		sessions:  make(map[string]*CheckoutSession),
		customers: make(map[string]*Customer),
		verifier:  NewClient(&Config{WebhookSecret: testWebhookSecret}, nil),
	}
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, params *CheckoutSessionParams) (*CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.created = append(g.created, params)
	id := fmt.Sprintf("cs_test_%d", len(g.created))
	session := &CheckoutSession{
		ID:     id,
		URL:    "https://checkout.stripe.com/c/pay/" + id,
		Status: "open",
		Plan:   params.Plan,
	}
	g.sessions[id] = session
	return session, nil
}

func (g *fakeGateway) CheckoutSession(_ context.Context, sessionID string) (*CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	session, ok := g.sessions[sessionID]
	if !ok {
		return nil, NewStripeError(ErrResourceMissing.Code, "failed to get checkout session", nil)
	}
	return session, nil
}

func (g *fakeGateway) Customer(_ context.Context, customerID string) (*Customer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	customer, ok := g.customers[customerID]
	if !ok {
		return nil, NewStripeError(ErrResourceMissing.Code, "failed to get customer", nil)
	}
	return customer, nil
}

func (g *fakeGateway) ValidateWebhookEvent(payload []byte, signatureHeader string) (*stripeapi.Event, error) {
	return g.verifier.ValidateWebhookEvent(payload, signatureHeader)
}

func (g *fakeGateway) checkoutCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.created)
}

// fakeMail collects the notifications sent.
type fakeMail struct {
	mu   sync.Mutex
	sent []*notifications.Notification
	err  error
}

func (*fakeMail) Init(any) error { return nil }

func (m *fakeMail) SendNotification(_ context.Context, n *notifications.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return m.err
}

type testEnv struct {
	service *Service
	gateway *fakeGateway
	store   db.Storage
	mail    *fakeMail
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqldb.NewSQLite(filepath.Join(t.TempDir(), "accounts.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	gateway := newFakeGateway()
	mail := &fakeMail{}
	service, err := NewService(gateway, store, NewCatalog(testPrices), mail)
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{service: service, gateway: gateway, store: store, mail: mail}
}

// signedEvent builds a webhook delivery for the given event type and data
// object, signed with the test secret.
func signedEvent(c *qt.C, eventType string, object any) (payload []byte, header string) {
	raw, err := json.Marshal(object)
	c.Assert(err, qt.IsNil)
	payload, err = json.Marshal(map[string]any{
		"id":          "evt_" + eventType,
		"object":      "event",
		"type":        eventType,
		"api_version": "2024-06-20",
		"created":     time.Now().Unix(),
		"data":        map[string]json.RawMessage{"object": raw},
	})
	c.Assert(err, qt.IsNil)
	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return payload, signed.Header
}

func checkoutCompleted(email, plan string) map[string]any {
	object := map[string]any{
		"id":       "cs_test_done",
		"object":   "checkout.session",
		"status":   "complete",
		"metadata": map[string]string{"plan": plan},
	}
	if email != "" {
		object["customer_details"] = map[string]any{"email": email}
	}
	return object
}

func subscription(customerID, status string) map[string]any {
	return map[string]any{
		"id":       "sub_test",
		"object":   "subscription",
		"customer": customerID,
		"status":   status,
	}
}
