package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/narvanalabs/boardroom/internal/models"
)

var allCodes = []interface{}{
	CodeValidationError,
	CodeNotFound,
	CodeUnauthorized,
	CodeForbidden,
	CodeInsufficientRole,
	CodeNotWorkspaceMember,
	CodeAlreadyMember,
	CodeAlreadyPending,
	CodeAlreadyResolved,
	CodeConflict,
	CodeRateLimited,
	CodeUnavailable,
	CodeInternalError,
}

// Every error response carries code, message and request_id.
func TestPropertyStructuredErrorResponseFormat(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	genNonEmptyString := gen.AlphaString().SuchThat(func(s string) bool {
		return len(s) > 0
	})
	genRequestID := gen.RegexMatch("[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}")

	properties.Property("Error response contains required fields", prop.ForAll(
		func(code, message, requestID string) bool {
			rr := httptest.NewRecorder()
			WriteError(rr, New(code, message).WithRequestID(requestID))

			var response map[string]any
			if jsonErr := json.NewDecoder(rr.Body).Decode(&response); jsonErr != nil {
				t.Logf("Failed to decode response: %v", jsonErr)
				return false
			}
			return response["code"] == code &&
				response["message"] == message &&
				response["request_id"] == requestID &&
				rr.Header().Get("Content-Type") == "application/json"
		},
		gen.OneConstOf(allCodes...),
		genNonEmptyString,
		genRequestID,
	))

	properties.Property("HTTP status code matches error code", prop.ForAll(
		func(code string) bool {
			err := New(code, "test message")
			rr := httptest.NewRecorder()
			WriteError(rr, err)
			return rr.Code == err.HTTPStatusCode()
		},
		gen.OneConstOf(allCodes...),
	))

	properties.TestingRun(t)
}

func TestFromErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{models.ErrUnauthorized, CodeInsufficientRole, http.StatusForbidden},
		{models.ErrNotWorkspaceMember, CodeNotWorkspaceMember, http.StatusForbidden},
		{models.ErrAlreadyMember, CodeAlreadyMember, http.StatusConflict},
		{models.ErrAlreadyPending, CodeAlreadyPending, http.StatusConflict},
		{fmt.Errorf("invitation: %w", models.ErrNotFound), CodeNotFound, http.StatusNotFound},
		{models.ErrAlreadyResolved, CodeAlreadyResolved, http.StatusConflict},
		{models.ErrForbidden, CodeForbidden, http.StatusForbidden},
		{fmt.Errorf("ping: %w", models.ErrStoreUnavailable), CodeUnavailable, http.StatusServiceUnavailable},
		{models.ErrInvalidRole, CodeValidationError, http.StatusBadRequest},
		{fmt.Errorf("boom"), CodeInternalError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		apiErr := FromError(tc.err)
		if apiErr.Code != tc.code {
			t.Errorf("FromError(%v).Code = %s, want %s", tc.err, apiErr.Code, tc.code)
		}
		if apiErr.HTTPStatusCode() != tc.status {
			t.Errorf("FromError(%v) status = %d, want %d", tc.err, apiErr.HTTPStatusCode(), tc.status)
		}
	}

	rr := httptest.NewRecorder()
	WriteError(rr, FromError(models.ErrStoreUnavailable))
	if rr.Header().Get("Retry-After") == "" {
		t.Error("store unavailable response should carry Retry-After")
	}
	if internal := FromError(fmt.Errorf("secret detail")); internal.Message == "secret detail" {
		t.Error("unknown errors must not leak their text")
	}
}

// Validation errors list every failing field in details.fields.
func TestPropertyValidationErrorFieldDetails(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	genValidationError := gopter.CombineGens(
		gen.RegexMatch("[a-z][a-zA-Z0-9_]{0,20}"),
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
	).Map(func(values []interface{}) ValidationError {
		return ValidationError{Field: values[0].(string), Message: values[1].(string)}
	})

	properties.Property("fields are reported in order", prop.ForAll(
		func(validationErrors []ValidationError) bool {
			var errs ValidationErrors
			for _, ve := range validationErrors {
				errs.Add(ve.Field, ve.Message)
			}

			rr := httptest.NewRecorder()
			WriteError(rr, errs.ToAPIError())

			var response struct {
				Code    string `json:"code"`
				Details struct {
					Fields []ValidationError `json:"fields"`
				} `json:"details"`
			}
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				return false
			}
			if response.Code != CodeValidationError || len(response.Details.Fields) != len(validationErrors) {
				return false
			}
			for i, f := range response.Details.Fields {
				if f != validationErrors[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(5, genValidationError),
	))

	properties.TestingRun(t)
}
