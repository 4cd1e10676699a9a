// Package handlers provides HTTP request handlers for the API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	apierrors "github.com/narvanalabs/boardroom/internal/api/errors"
	"go.opentelemetry.io/otel/trace"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	apierrors.WriteJSON(w, status, data)
}

// WriteError converts err into a structured API error and writes it.
// Internal errors are logged with a correlation ID; their text is not sent.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	requestID := middleware.GetReqID(r.Context())

	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		apiErr = apierrors.FromError(err)
	}
	if apiErr.HTTPStatusCode() >= http.StatusInternalServerError {
		entry := apierrors.NewErrorLogEntry(requestID, apiErr.Code, err.Error())
		attrs := append(entry.ToSlogAttrs(), "path", r.URL.Path)
		if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
			attrs = append(attrs, "trace_id", sc.TraceID().String())
		}
		logger.Error("request failed", attrs...)
	}
	apierrors.WriteErrorWithRequestID(w, apiErr, requestID)
}

// WriteBadRequest writes a 400 validation error.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	apierrors.WriteErrorWithRequestID(w, apierrors.NewValidationError(message), middleware.GetReqID(r.Context()))
}

// decodeJSON reads a JSON request body into v. An empty body leaves v
// unchanged.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apierrors.NewValidationError("Invalid request body: " + err.Error())
	}
	return nil
}
