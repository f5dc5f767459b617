// Package errors provides custom error types and definitions for the application.
//
//nolint:lll
package errors

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the caller's fault,
// and they return HTTP Status 400 or 404, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault (or the fault of an upstream
// service: the payment gateway or the account store) and they return HTTP
// Status 500.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX.
// Webhook senders redeliver on 5XX responses and give up on 4XX ones, so the
// HTTP status of an error is part of the contract.
var (
	// Validation errors (400)
	ErrMalformedBody    = Error{Code: 40001, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid JSON request body")}
	ErrMissingPlan      = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("missing plan")}
	ErrInvalidPlan      = Error{Code: 40003, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("price ID not configured for plan")}
	ErrMissingSessionID = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("missing session_id")}
	ErrWebhookSignature = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("webhook error"), LogLevel: "warn"}
	ErrMissingEmail     = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("missing customer email"), LogLevel: "warn"}
	ErrMalformedEvent   = Error{Code: 40007, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed webhook event"), LogLevel: "warn"}

	// Not found errors (404)
	ErrSessionNotFound = Error{Code: 40401, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("checkout session not found")}
	ErrEmailNotFound   = Error{Code: 40402, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("email not found in session")}
	ErrAccountNotFound = Error{Code: 40403, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("user not found")}

	// Server errors (500)
	ErrGenericInternalServerError = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: operation failed"), LogLevel: "error"}
	ErrStripeNotConfigured        = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("stripe not configured on server"), LogLevel: "error"}
	ErrStripeError                = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: payment processing failed"), LogLevel: "error"}
	ErrStoreError                 = Error{Code: 50004, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: storage operation failed"), LogLevel: "error"}
)
