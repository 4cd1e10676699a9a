package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/narvanalabs/boardroom/internal/api/errors"
	"github.com/narvanalabs/boardroom/internal/api/middleware"
	"github.com/narvanalabs/boardroom/internal/auth"
)

// AuthHandler handles the identity endpoints.
type AuthHandler struct {
	authService *auth.Service
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authSvc *auth.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authSvc,
		logger:      logger,
	}
}

// SignUpRequest is the body of POST /auth/signup.
type SignUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// SignInRequest is the body of POST /auth/signin. Login is a username or an
// email address.
type SignInRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// SignUp handles POST /auth/signup.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	user, err := h.authService.SignUp(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			WriteError(w, r, h.logger, apierrors.NewConflictError(err.Error()))
			return
		}
		WriteError(w, r, h.logger, err)
		return
	}

	token, _, err := h.authService.SignIn(r.Context(), user.Username, req.Password)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"user":  user,
		"token": token,
	})
}

// SignIn handles POST /auth/signin.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Login) == "" || req.Password == "" {
		WriteBadRequest(w, r, "login and password are required")
		return
	}

	token, user, err := h.authService.SignIn(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			WriteError(w, r, h.logger, apierrors.NewUnauthorizedError(err.Error()))
			return
		}
		WriteError(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"user":  user,
		"token": token,
	})
}

// SignOut handles POST /v1/auth/signout. The presented token stops working.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.SignOut(middleware.GetToken(r.Context())); err != nil {
		WriteError(w, r, h.logger, apierrors.NewUnauthorizedError(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /v1/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.CurrentUser(r.Context(), middleware.GetToken(r.Context()))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}
