package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/apiplans/checkout-backend/errors"
	"github.com/go-playground/validator/v10"
	"go.vocdoni.io/dvote/log"
)

// MaxBodyBytes limits the JSON bodies decoded by the middleware.
const MaxBodyBytes = int64(16 << 10)

// ValidatedModelKey is the context key of the validated request model.
type ValidatedModelKey struct{}

// ValidationError represents an individual validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a slice of ValidationError.
type ValidationErrors []ValidationError

// Error returns a string representation of the validation errors.
func (ve ValidationErrors) Error() string {
	var sb strings.Builder
	for i, err := range ve {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return sb.String()
}

// ValidateMiddleware decodes the JSON request body into a new instance of
// the model type and validates it. An empty body decodes as an empty object
// so required fields report their own error. The validated instance (a
// pointer to the model type) is stored in the request context.
func (v *Validator) ValidateMiddleware(model any) func(next http.Handler) http.Handler {
	modelType := reflect.TypeOf(model)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			instance := reflect.New(modelType).Interface()

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
			if err != nil {
				errors.ErrMalformedBody.WithErr(err).Write(w)
				return
			}
			// Restore the body for downstream handlers.
			r.Body = io.NopCloser(bytes.NewBuffer(body))

			if len(bytes.TrimSpace(body)) > 0 {
				if err := json.Unmarshal(body, instance); err != nil {
					errors.ErrMalformedBody.Write(w)
					return
				}
			}
			if apiErr := v.check(instance); apiErr != nil {
				log.Debugw("validation errors", "errors", apiErr.Error())
				apiErr.Write(w)
				return
			}
			ctx := context.WithValue(r.Context(), ValidatedModelKey{}, instance)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetValidatedModel retrieves the validated model from the context.
func GetValidatedModel[T any](ctx context.Context) (*T, bool) {
	model, ok := ctx.Value(ValidatedModelKey{}).(*T)
	return model, ok
}

// getErrorMessage returns a human-readable error message for a validation error.
func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("Must be at least %s characters long", err.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters long", err.Param())
	case "url":
		return "Invalid URL format"
	default:
		return fmt.Sprintf("Invalid value: %s", err.Tag())
	}
}
