package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	apierrors "github.com/narvanalabs/boardroom/internal/api/errors"
	"github.com/narvanalabs/boardroom/internal/auth"
)

// Context keys for user information.
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// UserEmailKey is the context key for the authenticated user email.
	UserEmailKey contextKey = "user_email"
	// TokenKey is the context key for the raw bearer token.
	TokenKey contextKey = "token"
)

// GetUserID extracts the user ID from the request context.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(UserIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetUserEmail extracts the user email from the request context.
func GetUserEmail(ctx context.Context) string {
	if v := ctx.Value(UserEmailKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetToken extracts the bearer token from the request context.
func GetToken(ctx context.Context) string {
	if v := ctx.Value(TokenKey); v != nil {
		return v.(string)
	}
	return ""
}

// WithUser returns a context carrying an authenticated identity.
func WithUser(ctx context.Context, userID, email, token string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, UserEmailKey, email)
	return context.WithValue(ctx, TokenKey, token)
}

// AuthMiddleware handles JWT authentication.
type AuthMiddleware struct {
	authService *auth.Service
	logger      *slog.Logger
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(authService *auth.Service, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		logger:      logger,
	}
}

// Authenticate is a middleware that validates bearer tokens. Browsers cannot
// set headers on websocket upgrades, so the token is also accepted from the
// access_token query parameter.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())

		token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			token = r.URL.Query().Get("access_token")
		}
		if token == "" {
			apierrors.WriteErrorWithRequestID(w, apierrors.NewUnauthorizedError("Missing authentication"), requestID)
			return
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			m.logger.Debug("JWT validation failed", "error", err)
			message := "Invalid token"
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				message = "Token has expired"
			case errors.Is(err, auth.ErrRevokedToken):
				message = "Token has been revoked"
			}
			apierrors.WriteErrorWithRequestID(w, apierrors.NewUnauthorizedError(message), requestID)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.UserID, claims.Email, token)))
	})
}
