package api

import (
	"net/http"

	"github.com/apiplans/checkout-backend/api/apicommon"
	"github.com/apiplans/checkout-backend/errors"
	"github.com/apiplans/checkout-backend/validator"
)

// createCheckoutSessionHandler opens a hosted checkout session for the plan
// in the body and returns the URL to redirect the browser to. The success
// and cancel pages are built from the origin of the request.
func (a *API) createCheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := validator.GetValidatedModel[CheckoutRequest](r.Context())
	if !ok {
		errors.ErrMalformedBody.Write(w)
		return
	}
	url, err := a.service.CreateCheckoutSession(r.Context(), req.Plan, apicommon.RequestOrigin(r))
	if err != nil {
		writeError(w, err)
		return
	}
	a.metrics.checkoutSessions.WithLabelValues(req.Plan).Inc()
	apicommon.HTTPWriteJSON(w, &CheckoutResponse{URL: url})
}

// sessionDetailsHandler returns the API key of the account provisioned for
// the checkout session in the session_id query parameter. A 404 is expected
// while the webhook of a fresh payment has not been processed yet.
func (a *API) sessionDetailsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		errors.ErrMissingSessionID.Write(w)
		return
	}
	apiKey, err := a.service.SessionAPIKey(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	apicommon.HTTPWriteJSON(w, &SessionDetailsResponse{APIKey: apiKey})
}

// writeError writes err as a JSON API error, falling back to a generic 500
// when it is not one.
func writeError(w http.ResponseWriter, err error) {
	var apiErr errors.Error
	if errors.As(err, &apiErr) {
		apiErr.Write(w)
		return
	}
	errors.ErrGenericInternalServerError.WithErr(err).Write(w)
}
