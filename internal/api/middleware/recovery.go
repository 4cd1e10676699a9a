package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	apierrors "github.com/narvanalabs/boardroom/internal/api/errors"
)

// Recovery returns a middleware that turns panics into a 500 response and a
// structured error log entry correlated by request ID.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				requestID := middleware.GetReqID(r.Context())
				entry := apierrors.NewErrorLogEntry(requestID, apierrors.CodeInternalError, "panic recovered")
				logger.Error("panic recovered", append(entry.ToSlogAttrs(),
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", GetUserID(r.Context()),
				)...)

				apierrors.WriteErrorWithRequestID(w, apierrors.NewInternalError("An unexpected error occurred"), requestID)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
