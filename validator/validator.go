// Package validator validates decoded request bodies with
// go-playground/validator and turns failures into API errors.
package validator

import (
	"github.com/apiplans/checkout-backend/errors"
	"github.com/go-playground/validator/v10"
)

// Validator is a wrapper around the go-playground/validator package.
type Validator struct {
	validator *validator.Validate
	// missing maps a struct field name to the error reported when its
	// "required" rule fails.
	missing map[string]errors.Error
}

// New creates a new Validator instance.
func New() *Validator {
	return &Validator{
		validator: validator.New(),
		missing:   make(map[string]errors.Error),
	}
}

// RequiredError makes a failed "required" rule on field report apiErr
// instead of the generic malformed body error. It is meant to be called
// during setup, before the validator serves requests.
func (v *Validator) RequiredError(field string, apiErr errors.Error) {
	v.missing[field] = apiErr
}

// Validate validates a struct using the validator package.
func (v *Validator) Validate(s any) error {
	return v.validator.Struct(s)
}

// check validates s and converts the failures into an API error.
func (v *Validator) check(s any) *errors.Error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		apiErr := errors.ErrMalformedBody.WithErr(err)
		return &apiErr
	}
	var validationErrors ValidationErrors
	for _, fieldErr := range fieldErrs {
		if apiErr, ok := v.missing[fieldErr.StructField()]; ok && fieldErr.Tag() == "required" {
			return &apiErr
		}
		validationErrors = append(validationErrors, ValidationError{
			Field:   fieldErr.Field(),
			Message: getErrorMessage(fieldErr),
		})
	}
	apiErr := errors.ErrMalformedBody.WithErr(validationErrors)
	return &apiErr
}
