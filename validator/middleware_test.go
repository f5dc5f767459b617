package validator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/apiplans/checkout-backend/errors"
	qt "github.com/frankban/quicktest"
)

type testModel struct {
	Plan  string `json:"plan" validate:"required,max=16"`
	Email string `json:"email" validate:"omitempty,email"`
}

func serve(v *Validator, body string) (*httptest.ResponseRecorder, *testModel) {
	var got *testModel
	handler := v.ValidateMiddleware(testModel{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetValidatedModel[testModel](r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, got
}

func errorCode(c *qt.C, rec *httptest.ResponseRecorder) int {
	var body struct {
		Code int `json:"code"`
	}
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &body), qt.IsNil)
	return body.Code
}

func TestValidateMiddleware(t *testing.T) {
	c := qt.New(t)
	v := New()

	rec, got := serve(v, `{"plan":"starter","email":"alice@example.com"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(got, qt.DeepEquals, &testModel{Plan: "starter", Email: "alice@example.com"})

	rec, got = serve(v, `{"plan":`)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(errorCode(c, rec), qt.Equals, errors.ErrMalformedBody.Code)
	c.Assert(got, qt.IsNil)

	rec, _ = serve(v, `{"plan":"starter","email":"nope"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(errorCode(c, rec), qt.Equals, errors.ErrMalformedBody.Code)
	c.Assert(strings.Contains(rec.Body.String(), "Invalid email format"), qt.IsTrue)

	rec, _ = serve(v, `{"plan":"a-very-long-plan-name"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(strings.Contains(rec.Body.String(), "Must be at most 16 characters long"), qt.IsTrue)

	// without a registered error, missing fields are malformed bodies
	rec, _ = serve(v, `{}`)
	c.Assert(errorCode(c, rec), qt.Equals, errors.ErrMalformedBody.Code)
}

func TestRequiredError(t *testing.T) {
	c := qt.New(t)
	v := New()
	v.RequiredError("Plan", errors.ErrMissingPlan)

	for _, body := range []string{``, `{}`, `{"plan":""}`, "  \n"} {
		rec, got := serve(v, body)
		c.Assert(rec.Code, qt.Equals, http.StatusBadRequest, qt.Commentf("body %q", body))
		c.Assert(errorCode(c, rec), qt.Equals, errors.ErrMissingPlan.Code)
		c.Assert(got, qt.IsNil)
	}
}

func TestValidate(t *testing.T) {
	c := qt.New(t)
	v := New()
	c.Assert(v.Validate(testModel{Plan: "starter"}), qt.IsNil)
	c.Assert(v.Validate(testModel{}), qt.IsNotNil)
}
