// Package boards provides workspace, board, list and card management gated
// by container membership.
package boards

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/narvanalabs/boardroom/internal/membership"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
)

// Service implements the CRUD flows behind the board UI.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// NewService creates a new boards service.
func NewService(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger}
}

// CreateWorkspace creates a workspace owned by userID.
func (s *Service) CreateWorkspace(ctx context.Context, userID, name, description string) (*models.Workspace, error) {
	ws := &models.Workspace{
		Container:   models.Container{OwnerUserID: userID},
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	}
	if err := ws.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Workspaces().Create(ctx, ws); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	s.logger.Info("workspace created", "workspace_id", ws.ID, "owner_id", userID)
	return ws, nil
}

// GetWorkspace returns a workspace userID has access to.
func (s *Service) GetWorkspace(ctx context.Context, userID, id string) (*models.Workspace, error) {
	ws, err := s.store.Workspaces().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !membership.IsMember(&ws.Container, userID) {
		return nil, models.ErrForbidden
	}
	return ws, nil
}

// ListWorkspaces returns the workspaces userID owns or belongs to.
func (s *Service) ListWorkspaces(ctx context.Context, userID string) ([]*models.Workspace, error) {
	return s.store.Workspaces().ListForUser(ctx, userID)
}

// UpdateWorkspace renames a workspace. Only the owner may do so.
func (s *Service) UpdateWorkspace(ctx context.Context, userID, id, name, description string) (*models.Workspace, error) {
	ws, err := s.store.Workspaces().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ws.OwnerUserID != userID {
		return nil, models.ErrUnauthorized
	}
	ws.Name = strings.TrimSpace(name)
	ws.Description = strings.TrimSpace(description)
	if err := ws.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Workspaces().Update(ctx, ws); err != nil {
		return nil, fmt.Errorf("updating workspace: %w", err)
	}
	return ws, nil
}

// DeleteWorkspace deletes a workspace and its boards together with every
// invitation to them. Only the owner may do so.
func (s *Service) DeleteWorkspace(ctx context.Context, userID, id string) error {
	ws, err := s.store.Workspaces().Get(ctx, id)
	if err != nil {
		return err
	}
	if ws.OwnerUserID != userID {
		return models.ErrUnauthorized
	}
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		return tx.Workspaces().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}
	s.logger.Info("workspace deleted", "workspace_id", id, "owner_id", userID)
	return nil
}

// CreateBoard creates a board owned by userID, optionally inside a
// workspace the user has access to.
func (s *Service) CreateBoard(ctx context.Context, userID, title, background, workspaceID string) (*models.Board, error) {
	b := &models.Board{
		Container:  models.Container{OwnerUserID: userID, WorkspaceID: workspaceID},
		Title:      strings.TrimSpace(title),
		Background: strings.TrimSpace(background),
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if workspaceID != "" {
		ws, err := s.store.Members().Get(ctx, models.ContainerRef{Type: models.ContainerWorkspace, ID: workspaceID})
		if err != nil {
			return nil, err
		}
		if !membership.IsMember(ws, userID) {
			return nil, models.ErrNotWorkspaceMember
		}
	}
	if err := s.store.Boards().Create(ctx, b); err != nil {
		return nil, fmt.Errorf("creating board: %w", err)
	}
	s.logger.Info("board created", "board_id", b.ID, "workspace_id", workspaceID, "owner_id", userID)
	return b, nil
}

// GetBoard returns a board userID is a member of.
func (s *Service) GetBoard(ctx context.Context, userID, id string) (*models.Board, error) {
	b, err := s.store.Boards().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !membership.IsMember(&b.Container, userID) {
		return nil, models.ErrForbidden
	}
	return b, nil
}

// ListBoards returns the boards userID owns or belongs to.
func (s *Service) ListBoards(ctx context.Context, userID string) ([]*models.Board, error) {
	return s.store.Boards().ListForUser(ctx, userID)
}

// ListWorkspaceBoards returns the boards of a workspace that userID can open.
func (s *Service) ListWorkspaceBoards(ctx context.Context, userID, workspaceID string) ([]*models.Board, error) {
	if _, err := s.GetWorkspace(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	all, err := s.store.Boards().ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	visible := make([]*models.Board, 0, len(all))
	for _, b := range all {
		if membership.IsMember(&b.Container, userID) {
			visible = append(visible, b)
		}
	}
	return visible, nil
}

// UpdateBoard changes the title and background. Owners and board admins
// may do so.
func (s *Service) UpdateBoard(ctx context.Context, userID, id, title, background string) (*models.Board, error) {
	b, err := s.store.Boards().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !membership.CanManage(&b.Container, userID) {
		return nil, models.ErrUnauthorized
	}
	b.Title = strings.TrimSpace(title)
	b.Background = strings.TrimSpace(background)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Boards().Update(ctx, b); err != nil {
		return nil, fmt.Errorf("updating board: %w", err)
	}
	return b, nil
}

// DeleteBoard deletes a board and its invitations. Only the owner may do so.
func (s *Service) DeleteBoard(ctx context.Context, userID, id string) error {
	b, err := s.store.Boards().Get(ctx, id)
	if err != nil {
		return err
	}
	if b.OwnerUserID != userID {
		return models.ErrUnauthorized
	}
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		return tx.Boards().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("deleting board: %w", err)
	}
	s.logger.Info("board deleted", "board_id", id, "owner_id", userID)
	return nil
}

// requireBoard loads the board membership view and checks userID may use it.
func (s *Service) requireBoard(ctx context.Context, userID, boardID string) error {
	c, err := s.store.Members().Get(ctx, models.ContainerRef{Type: models.ContainerBoard, ID: boardID})
	if err != nil {
		return err
	}
	if !membership.IsMember(c, userID) {
		return models.ErrForbidden
	}
	return nil
}

// CreateList appends a list to a board.
func (s *Service) CreateList(ctx context.Context, userID, boardID, title string) (*models.List, error) {
	if err := s.requireBoard(ctx, userID, boardID); err != nil {
		return nil, err
	}
	existing, err := s.store.Lists().ListByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	list := &models.List{BoardID: boardID, Title: strings.TrimSpace(title), Position: len(existing)}
	if err := list.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Lists().Create(ctx, list); err != nil {
		return nil, fmt.Errorf("creating list: %w", err)
	}
	return list, nil
}

// ListLists returns the lists of a board in position order.
func (s *Service) ListLists(ctx context.Context, userID, boardID string) ([]*models.List, error) {
	if err := s.requireBoard(ctx, userID, boardID); err != nil {
		return nil, err
	}
	return s.store.Lists().ListByBoard(ctx, boardID)
}

// RenameList changes a list's title.
func (s *Service) RenameList(ctx context.Context, userID, listID, title string) (*models.List, error) {
	list, err := s.store.Lists().Get(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := s.requireBoard(ctx, userID, list.BoardID); err != nil {
		return nil, err
	}
	list.Title = strings.TrimSpace(title)
	if err := list.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Lists().Update(ctx, list); err != nil {
		return nil, fmt.Errorf("updating list: %w", err)
	}
	return list, nil
}

// DeleteList deletes a list with its cards.
func (s *Service) DeleteList(ctx context.Context, userID, listID string) error {
	list, err := s.store.Lists().Get(ctx, listID)
	if err != nil {
		return err
	}
	if err := s.requireBoard(ctx, userID, list.BoardID); err != nil {
		return err
	}
	return s.store.Lists().Delete(ctx, listID)
}

// CardInput carries the editable card fields. Nil fields are left unchanged
// on update.
type CardInput struct {
	Title       *string
	Description *string
	DueAt       *time.Time
	ClearDueAt  bool
}

// CreateCard appends a card to a list.
func (s *Service) CreateCard(ctx context.Context, userID, listID string, in CardInput) (*models.Card, error) {
	list, err := s.store.Lists().Get(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := s.requireBoard(ctx, userID, list.BoardID); err != nil {
		return nil, err
	}
	existing, err := s.store.Cards().ListByList(ctx, listID)
	if err != nil {
		return nil, err
	}
	card := &models.Card{ListID: listID, BoardID: list.BoardID, Position: len(existing)}
	applyCard(card, in)
	if err := card.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Cards().Create(ctx, card); err != nil {
		return nil, fmt.Errorf("creating card: %w", err)
	}
	return card, nil
}

// ListCards returns the cards of a list in position order.
func (s *Service) ListCards(ctx context.Context, userID, listID string) ([]*models.Card, error) {
	list, err := s.store.Lists().Get(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := s.requireBoard(ctx, userID, list.BoardID); err != nil {
		return nil, err
	}
	return s.store.Cards().ListByList(ctx, listID)
}

// UpdateCard edits a card.
func (s *Service) UpdateCard(ctx context.Context, userID, cardID string, in CardInput) (*models.Card, error) {
	card, err := s.store.Cards().Get(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if err := s.requireBoard(ctx, userID, card.BoardID); err != nil {
		return nil, err
	}
	applyCard(card, in)
	if err := card.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Cards().Update(ctx, card); err != nil {
		return nil, fmt.Errorf("updating card: %w", err)
	}
	return card, nil
}

// MoveCard moves a card to position in listID. The target list must belong
// to the same board.
func (s *Service) MoveCard(ctx context.Context, userID, cardID, listID string, position int) (*models.Card, error) {
	card, err := s.store.Cards().Get(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if err := s.requireBoard(ctx, userID, card.BoardID); err != nil {
		return nil, err
	}
	target, err := s.store.Lists().Get(ctx, listID)
	if err != nil {
		return nil, err
	}
	if target.BoardID != card.BoardID {
		return nil, fmt.Errorf("list %s is on another board: %w", listID, models.ErrForbidden)
	}
	if position < 0 {
		position = 0
	}
	card.ListID = listID
	card.Position = position
	if err := s.store.Cards().Update(ctx, card); err != nil {
		return nil, fmt.Errorf("moving card: %w", err)
	}
	return card, nil
}

// DeleteCard deletes a card.
func (s *Service) DeleteCard(ctx context.Context, userID, cardID string) error {
	card, err := s.store.Cards().Get(ctx, cardID)
	if err != nil {
		return err
	}
	if err := s.requireBoard(ctx, userID, card.BoardID); err != nil {
		return err
	}
	return s.store.Cards().Delete(ctx, cardID)
}

func applyCard(card *models.Card, in CardInput) {
	if in.Title != nil {
		card.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		card.Description = *in.Description
	}
	switch {
	case in.ClearDueAt:
		card.DueAt = nil
	case in.DueAt != nil:
		due := in.DueAt.UTC()
		card.DueAt = &due
	}
}
