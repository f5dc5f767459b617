package api

// CheckoutRequest is the body of a checkout session request.
type CheckoutRequest struct {
	Plan string `json:"plan" validate:"required,max=64"`
}

// CheckoutResponse carries the hosted checkout URL.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// SessionDetailsResponse carries the API key issued for a checkout session.
type SessionDetailsResponse struct {
	APIKey string `json:"api_key"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}
