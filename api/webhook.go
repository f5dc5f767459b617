package api

import (
	"io"
	"net/http"

	"github.com/apiplans/checkout-backend/api/apicommon"
	"github.com/apiplans/checkout-backend/errors"
	"go.vocdoni.io/dvote/log"
)

// MaxWebhookBodyBytes bounds the size of a webhook delivery.
const MaxWebhookBodyBytes = int64(65536)

// stripeWebhookHandler verifies and applies a Stripe webhook delivery. The
// response is plain text: 2XX acknowledges the event, 4XX rejects it for
// good and 5XX asks Stripe to redeliver it later.
func (a *API) stripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBodyBytes))
	if err != nil {
		a.metrics.webhookEvents.WithLabelValues("rejected").Inc()
		errors.ErrMalformedEvent.WithErr(err).WriteText(w)
		return
	}
	action, err := a.service.HandleWebhookEvent(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		var apiErr errors.Error
		if !errors.As(err, &apiErr) {
			apiErr = errors.ErrGenericInternalServerError.WithErr(err)
		}
		outcome := "rejected"
		if apiErr.HTTPstatus >= http.StatusInternalServerError {
			outcome = "failed"
		}
		a.metrics.webhookEvents.WithLabelValues(outcome).Inc()
		apiErr.WriteText(w)
		return
	}
	log.Debugw("stripe webhook processed", "action", string(action))
	a.metrics.webhookEvents.WithLabelValues(string(action)).Inc()
	apicommon.HTTPWriteText(w, action.Message())
}
