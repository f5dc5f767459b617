package stripe

import (
	"errors"
	"fmt"
	"net/http"

	stripeapi "github.com/stripe/stripe-go/v81"
)

// StripeError represents a Stripe-specific error
type StripeError struct {
	Code    string
	Message string
	Err     error
}

func (e *StripeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stripe error [%s]: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("stripe error [%s]: %s", e.Code, e.Message)
}

func (e *StripeError) Unwrap() error {
	return e.Err
}

// Is matches StripeErrors by code.
func (e *StripeError) Is(target error) bool {
	t, ok := target.(*StripeError)
	return ok && t.Code == e.Code
}

// Common Stripe errors
var (
	ErrNotConfigured     = &StripeError{Code: "not_configured", Message: "stripe secret key is not configured"}
	ErrResourceMissing   = &StripeError{Code: "resource_missing", Message: "stripe resource not found"}
	ErrAPICallFailed     = &StripeError{Code: "api_call_failed", Message: "stripe API call failed"}
	ErrWebhookValidation = &StripeError{Code: "webhook_validation", Message: "webhook signature validation failed"}
)

// NewStripeError creates a new StripeError with the given code, message, and underlying error
func NewStripeError(code, message string, err error) *StripeError {
	return &StripeError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// apiError wraps an error returned by stripe-go, flagging missing resources
// so callers can tell them apart from other failures.
func apiError(message string, err error) *StripeError {
	var stripeErr *stripeapi.Error
	if errors.As(err, &stripeErr) &&
		(stripeErr.Code == stripeapi.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound) {
		return NewStripeError(ErrResourceMissing.Code, message, err)
	}
	return NewStripeError(ErrAPICallFailed.Code, message, err)
}

// gatewayMessage returns the message reported by Stripe, falling back to err.Error().
func gatewayMessage(err error) string {
	var stripeErr *stripeapi.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return err.Error()
}
