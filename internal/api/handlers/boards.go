package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/narvanalabs/boardroom/internal/api/middleware"
	"github.com/narvanalabs/boardroom/internal/boards"
)

// BoardHandler handles workspace, board, list and card requests.
type BoardHandler struct {
	boards *boards.Service
	logger *slog.Logger
}

// NewBoardHandler creates a new board handler.
func NewBoardHandler(svc *boards.Service, logger *slog.Logger) *BoardHandler {
	return &BoardHandler{
		boards: svc,
		logger: logger,
	}
}

// WorkspaceRequest is the body for creating or updating a workspace.
type WorkspaceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// BoardRequest is the body for creating or updating a board.
type BoardRequest struct {
	Title       string `json:"title"`
	Background  string `json:"background,omitempty"`
	WorkspaceID string `json:"workspace_id,omitempty"`
}

// ListRequest is the body for creating or renaming a list.
type ListRequest struct {
	Title string `json:"title"`
}

// CardRequest is the body for creating or editing a card.
type CardRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	ClearDueAt  bool       `json:"clear_due_at,omitempty"`
}

func (c CardRequest) input() boards.CardInput {
	return boards.CardInput{
		Title:       c.Title,
		Description: c.Description,
		DueAt:       c.DueAt,
		ClearDueAt:  c.ClearDueAt,
	}
}

// MoveCardRequest is the body of POST /v1/cards/{cardID}/move.
type MoveCardRequest struct {
	ListID   string `json:"list_id"`
	Position int    `json:"position"`
}

// CreateWorkspace handles POST /v1/workspaces.
func (h *BoardHandler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req WorkspaceRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	ws, err := h.boards.CreateWorkspace(r.Context(), middleware.GetUserID(r.Context()), req.Name, req.Description)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, ws)
}

// ListWorkspaces handles GET /v1/workspaces.
func (h *BoardHandler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	list, err := h.boards.ListWorkspaces(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

// GetWorkspace handles GET /v1/workspaces/{containerID}.
func (h *BoardHandler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := h.boards.GetWorkspace(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "containerID"))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, ws)
}

// UpdateWorkspace handles PATCH /v1/workspaces/{containerID}.
func (h *BoardHandler) UpdateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req WorkspaceRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	ws, err := h.boards.UpdateWorkspace(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "containerID"), req.Name, req.Description)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, ws)
}

// DeleteWorkspace handles DELETE /v1/workspaces/{containerID}.
func (h *BoardHandler) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := h.boards.DeleteWorkspace(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "containerID")); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListWorkspaceBoards handles GET /v1/workspaces/{containerID}/boards.
func (h *BoardHandler) ListWorkspaceBoards(w http.ResponseWriter, r *http.Request) {
	list, err := h.boards.ListWorkspaceBoards(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "containerID"))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

// CreateBoard handles POST /v1/boards.
func (h *BoardHandler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	var req BoardRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	b, err := h.boards.CreateBoard(r.Context(), middleware.GetUserID(r.Context()), req.Title, req.Background, req.WorkspaceID)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, b)
}

// ListBoards handles GET /v1/boards.
func (h *BoardHandler) ListBoards(w http.ResponseWriter, r *http.Request) {
	list, err := h.boards.ListBoards(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

// GetBoard handles GET /v1/boards/{containerID}.
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	b, err := h.boards.GetBoard(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "containerID"))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, b)
}

// UpdateBoard handles PATCH /v1/boards/{containerID}.
func (h *BoardHandler) UpdateBoard(w http.ResponseWriter, r *http.Request) {
	var req BoardRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	b, err := h.boards.UpdateBoard(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "containerID"), req.Title, req.Background)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, b)
}

// DeleteBoard handles DELETE /v1/boards/{containerID}.
func (h *BoardHandler) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	if err := h.boards.DeleteBoard(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "containerID")); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListLists handles GET /v1/boards/{containerID}/lists.
func (h *BoardHandler) ListLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.boards.ListLists(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "containerID"))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, lists)
}

// CreateList handles POST /v1/boards/{containerID}/lists.
func (h *BoardHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	var req ListRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	list, err := h.boards.CreateList(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "containerID"), req.Title)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, list)
}

// RenameList handles PATCH /v1/lists/{listID}.
func (h *BoardHandler) RenameList(w http.ResponseWriter, r *http.Request) {
	var req ListRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	list, err := h.boards.RenameList(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "listID"), req.Title)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

// DeleteList handles DELETE /v1/lists/{listID}.
func (h *BoardHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	if err := h.boards.DeleteList(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "listID")); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCards handles GET /v1/lists/{listID}/cards.
func (h *BoardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.boards.ListCards(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "listID"))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, cards)
}

// CreateCard handles POST /v1/lists/{listID}/cards.
func (h *BoardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req CardRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	card, err := h.boards.CreateCard(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "listID"), req.input())
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, card)
}

// UpdateCard handles PATCH /v1/cards/{cardID}.
func (h *BoardHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	var req CardRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	card, err := h.boards.UpdateCard(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "cardID"), req.input())
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, card)
}

// MoveCard handles POST /v1/cards/{cardID}/move.
func (h *BoardHandler) MoveCard(w http.ResponseWriter, r *http.Request) {
	var req MoveCardRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	if req.ListID == "" {
		WriteBadRequest(w, r, "list_id is required")
		return
	}
	card, err := h.boards.MoveCard(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "cardID"), req.ListID, req.Position)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, card)
}

// DeleteCard handles DELETE /v1/cards/{cardID}.
func (h *BoardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.boards.DeleteCard(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "cardID")); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
