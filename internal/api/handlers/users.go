package handlers

import (
	"log/slog"
	"net/http"

	"github.com/narvanalabs/boardroom/internal/api/middleware"
	"github.com/narvanalabs/boardroom/internal/directory"
)

// UsersHandler serves the user directory.
type UsersHandler struct {
	directory *directory.Directory
	logger    *slog.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(dir *directory.Directory, logger *slog.Logger) *UsersHandler {
	return &UsersHandler{
		directory: dir,
		logger:    logger,
	}
}

// Search handles GET /v1/users/search?q=. The caller is never part of the
// results. A failing lookup still answers with an empty list so the invite
// form stays usable.
func (h *UsersHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	query := r.URL.Query().Get("q")

	users, err := h.directory.Search(r.Context(), query, userID)
	if err != nil {
		h.logger.Warn("user search failed", "error", err, "user_id", userID)
	}

	// Lets the UI explain why the caller's own account is missing.
	current, _ := h.directory.GetUser(r.Context(), userID)
	WriteJSON(w, http.StatusOK, map[string]any{
		"users":      users,
		"self_match": h.directory.IsSelfMatch(current, query),
	})
}
