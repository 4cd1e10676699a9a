package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/narvanalabs/boardroom/internal/api/middleware"
	"github.com/narvanalabs/boardroom/internal/directory"
	"github.com/narvanalabs/boardroom/internal/membership"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/reconcile"
)

// InvitationsHandler handles invitation and member management requests for
// both boards and workspaces.
type InvitationsHandler struct {
	service   *reconcile.Service
	directory *directory.Directory
	logger    *slog.Logger
}

// NewInvitationsHandler creates a new invitations handler.
func NewInvitationsHandler(svc *reconcile.Service, dir *directory.Directory, logger *slog.Logger) *InvitationsHandler {
	return &InvitationsHandler{
		service:   svc,
		directory: dir,
		logger:    logger,
	}
}

// InviteRequest is the body of POST /v1/{workspaces|boards}/{containerID}/invitations.
type InviteRequest struct {
	UserIDs []string `json:"user_ids"`
	Role    string   `json:"role,omitempty"`
}

// MemberView is one row of a container's member listing.
type MemberView struct {
	UserID   string      `json:"user_id"`
	Username string      `json:"username,omitempty"`
	Role     models.Role `json:"role"`
}

func containerRef(t models.ContainerType, r *http.Request) models.ContainerRef {
	return models.ContainerRef{Type: t, ID: chi.URLParam(r, "containerID")}
}

// Invite returns the handler for inviting users to containers of type t.
// The response always lists one outcome per distinct candidate.
func (h *InvitationsHandler) Invite(t models.ContainerType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InviteRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, r, h.logger, err)
			return
		}
		if len(req.UserIDs) == 0 {
			WriteBadRequest(w, r, "user_ids must list at least one user")
			return
		}
		role, err := models.ParseRole(req.Role)
		if err != nil {
			WriteError(w, r, h.logger, err)
			return
		}

		ref := containerRef(t, r)
		result, err := h.service.InviteUsers(r.Context(), reconcile.InviteRequest{
			ContainerType:    ref.Type,
			ContainerID:      ref.ID,
			RequesterUserID:  middleware.GetUserID(r.Context()),
			CandidateUserIDs: req.UserIDs,
			Role:             role,
		})
		if err != nil {
			WriteError(w, r, h.logger, err)
			return
		}

		status := http.StatusOK
		if len(result.Created()) > 0 {
			status = http.StatusCreated
		}
		WriteJSON(w, status, result)
	}
}

// ListForContainer returns the handler listing the invitations of a
// container. Only users who may manage its members can see them.
func (h *InvitationsHandler) ListForContainer(t models.ContainerType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := containerRef(t, r)
		c, err := h.service.Members().Get(r.Context(), ref)
		if err != nil {
			WriteError(w, r, h.logger, err)
			return
		}
		if !membership.CanManage(c, middleware.GetUserID(r.Context())) {
			WriteError(w, r, h.logger, models.ErrUnauthorized)
			return
		}
		invs, err := h.service.Ledger().ListForContainer(r.Context(), ref.ID)
		if err != nil {
			WriteError(w, r, h.logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, invs)
	}
}

// ListMembers returns the handler listing the owner and members of a
// container. Any member may read it.
func (h *InvitationsHandler) ListMembers(t models.ContainerType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := h.service.Members().Get(r.Context(), containerRef(t, r))
		if err != nil {
			WriteError(w, r, h.logger, err)
			return
		}
		if !membership.IsMember(c, middleware.GetUserID(r.Context())) {
			WriteError(w, r, h.logger, models.ErrForbidden)
			return
		}

		ids := []string{c.OwnerUserID}
		for _, m := range c.Members {
			ids = append(ids, m.UserID)
		}
		users, err := h.directory.ResolveUsers(r.Context(), ids)
		if err != nil {
			WriteError(w, r, h.logger, err)
			return
		}

		views := make([]MemberView, 0, len(ids))
		for _, id := range ids {
			v := MemberView{UserID: id, Role: membership.RoleOf(c, id)}
			if u, ok := users[id]; ok {
				v.Username = u.Username
			}
			views = append(views, v)
		}
		WriteJSON(w, http.StatusOK, views)
	}
}

// RemoveMember returns the handler for DELETE .../members/{userID}.
func (h *InvitationsHandler) RemoveMember(t models.ContainerType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := h.service.RemoveMember(r.Context(), containerRef(t, r),
			middleware.GetUserID(r.Context()), chi.URLParam(r, "userID"))
		if err != nil {
			WriteError(w, r, h.logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

// Leave returns the handler for POST .../leave.
func (h *InvitationsHandler) Leave(t models.ContainerType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := h.service.LeaveContainer(r.Context(), containerRef(t, r), middleware.GetUserID(r.Context()))
		if err != nil {
			WriteError(w, r, h.logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

// ListMine handles GET /v1/invitations?status=pending,accepted. Without a
// status filter only pending invitations are returned.
func (h *InvitationsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	statuses := []models.InvitationStatus{models.InvitationStatusPending}
	if raw := r.URL.Query().Get("status"); raw != "" {
		statuses = statuses[:0]
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s == "all" {
				statuses = nil
				break
			} else if s != "" {
				statuses = append(statuses, models.InvitationStatus(s))
			}
		}
	}

	invs, err := h.service.Ledger().ListForUser(r.Context(), middleware.GetUserID(r.Context()), statuses...)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, invs)
}

// Accept handles POST /v1/invitations/{invitationID}/accept.
func (h *InvitationsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.AcceptInvitation(r.Context(), chi.URLParam(r, "invitationID"), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, inv)
}

// Decline handles POST /v1/invitations/{invitationID}/decline.
func (h *InvitationsHandler) Decline(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.DeclineInvitation(r.Context(), chi.URLParam(r, "invitationID"), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, inv)
}

// Cancel handles DELETE /v1/invitations/{invitationID}.
func (h *InvitationsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.CancelInvitation(r.Context(), chi.URLParam(r, "invitationID"), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, inv)
}
