package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
)

// WorkspaceStore implements store.WorkspaceStore in memory.
type WorkspaceStore struct {
	s *Store
}

// Create creates a new workspace.
func (w *WorkspaceStore) Create(ctx context.Context, ws *models.Workspace) error {
	if err := ws.Validate(); err != nil {
		return fmt.Errorf("validating workspace: %w", err)
	}

	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	if _, ok := w.s.data.users[ws.OwnerUserID]; !ok {
		return fmt.Errorf("owner: %w", store.ErrNotFound)
	}
	if ws.ID == "" {
		ws.ID = uuid.New().String()
	}
	if _, ok := w.s.data.workspaces[ws.ID]; ok {
		return store.ErrDuplicateKey
	}
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = time.Now().UTC()
	}
	ws.UpdatedAt = ws.CreatedAt
	ws.Type = models.ContainerWorkspace
	ws.Version = 1
	if ws.Members == nil {
		ws.Members = []models.MemberEntry{}
	}

	w.s.data.workspaces[ws.ID] = cloneWorkspace(ws)
	w.s.data.order[ws.ID] = w.s.next()
	return nil
}

// Get retrieves a workspace by ID.
func (w *WorkspaceStore) Get(ctx context.Context, id string) (*models.Workspace, error) {
	w.s.mu.RLock()
	defer w.s.mu.RUnlock()

	ws, ok := w.s.data.workspaces[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneWorkspace(ws), nil
}

// ListForUser retrieves workspaces owned by or shared with userID.
func (w *WorkspaceStore) ListForUser(ctx context.Context, userID string) ([]*models.Workspace, error) {
	w.s.mu.RLock()
	defer w.s.mu.RUnlock()

	out := []*models.Workspace{}
	for _, ws := range w.s.data.workspaces {
		if hasMember(&ws.Container, userID) {
			out = append(out, cloneWorkspace(ws))
		}
	}
	order := w.s.data.order
	sort.Slice(out, func(i, j int) bool { return order[out[i].ID] < order[out[j].ID] })
	return out, nil
}

// Update updates name and description.
func (w *WorkspaceStore) Update(ctx context.Context, ws *models.Workspace) error {
	if err := ws.Validate(); err != nil {
		return fmt.Errorf("validating workspace: %w", err)
	}

	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	existing, ok := w.s.data.workspaces[ws.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Name = ws.Name
	existing.Description = ws.Description
	existing.UpdatedAt = time.Now().UTC()
	ws.UpdatedAt = existing.UpdatedAt
	return nil
}

// Delete deletes a workspace together with its boards and their contents.
func (w *WorkspaceStore) Delete(ctx context.Context, id string) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	if _, ok := w.s.data.workspaces[id]; !ok {
		return store.ErrNotFound
	}
	for boardID, b := range w.s.data.boards {
		if b.WorkspaceID == id {
			deleteBoardLocked(w.s.data, boardID)
		}
	}
	deleteInvitationsLocked(w.s.data, id)
	delete(w.s.data.workspaces, id)
	delete(w.s.data.order, id)
	return nil
}

// BoardStore implements store.BoardStore in memory.
type BoardStore struct {
	s *Store
}

// Create creates a new board.
func (b *BoardStore) Create(ctx context.Context, board *models.Board) error {
	if err := board.Validate(); err != nil {
		return fmt.Errorf("validating board: %w", err)
	}

	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	if _, ok := b.s.data.users[board.OwnerUserID]; !ok {
		return fmt.Errorf("owner or workspace: %w", store.ErrNotFound)
	}
	if board.WorkspaceID != "" {
		if _, ok := b.s.data.workspaces[board.WorkspaceID]; !ok {
			return fmt.Errorf("owner or workspace: %w", store.ErrNotFound)
		}
	}
	if board.ID == "" {
		board.ID = uuid.New().String()
	}
	if _, ok := b.s.data.boards[board.ID]; ok {
		return store.ErrDuplicateKey
	}
	if board.CreatedAt.IsZero() {
		board.CreatedAt = time.Now().UTC()
	}
	board.UpdatedAt = board.CreatedAt
	board.Type = models.ContainerBoard
	board.Version = 1
	if board.Members == nil {
		board.Members = []models.MemberEntry{}
	}

	b.s.data.boards[board.ID] = cloneBoard(board)
	b.s.data.order[board.ID] = b.s.next()
	return nil
}

// Get retrieves a board by ID.
func (b *BoardStore) Get(ctx context.Context, id string) (*models.Board, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()

	board, ok := b.s.data.boards[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneBoard(board), nil
}

// ListForUser retrieves boards owned by or shared with userID.
func (b *BoardStore) ListForUser(ctx context.Context, userID string) ([]*models.Board, error) {
	return b.list(func(board *models.Board) bool { return hasMember(&board.Container, userID) }), nil
}

// ListByWorkspace retrieves every board in the workspace.
func (b *BoardStore) ListByWorkspace(ctx context.Context, workspaceID string) ([]*models.Board, error) {
	if workspaceID == "" {
		return []*models.Board{}, nil
	}
	return b.list(func(board *models.Board) bool { return board.WorkspaceID == workspaceID }), nil
}

func (b *BoardStore) list(match func(*models.Board) bool) []*models.Board {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()

	out := []*models.Board{}
	for _, board := range b.s.data.boards {
		if match(board) {
			out = append(out, cloneBoard(board))
		}
	}
	order := b.s.data.order
	sort.Slice(out, func(i, j int) bool { return order[out[i].ID] < order[out[j].ID] })
	return out
}

// Update updates title and background.
func (b *BoardStore) Update(ctx context.Context, board *models.Board) error {
	if err := board.Validate(); err != nil {
		return fmt.Errorf("validating board: %w", err)
	}

	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	existing, ok := b.s.data.boards[board.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Title = board.Title
	existing.Background = board.Background
	existing.UpdatedAt = time.Now().UTC()
	board.UpdatedAt = existing.UpdatedAt
	return nil
}

// Delete deletes a board with its lists, cards and invitations.
func (b *BoardStore) Delete(ctx context.Context, id string) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	if _, ok := b.s.data.boards[id]; !ok {
		return store.ErrNotFound
	}
	deleteBoardLocked(b.s.data, id)
	return nil
}

func deleteBoardLocked(d *dataset, boardID string) {
	for id, l := range d.lists {
		if l.BoardID == boardID {
			delete(d.lists, id)
			delete(d.order, id)
		}
	}
	for id, c := range d.cards {
		if c.BoardID == boardID {
			delete(d.cards, id)
			delete(d.order, id)
		}
	}
	deleteInvitationsLocked(d, boardID)
	delete(d.boards, boardID)
	delete(d.order, boardID)
}

func deleteInvitationsLocked(d *dataset, containerID string) {
	for id, inv := range d.invitations {
		if inv.ContainerID == containerID {
			delete(d.invitations, id)
			delete(d.order, id)
		}
	}
}

// MemberStore implements store.MemberStore in memory.
type MemberStore struct {
	s *Store
}

// Get loads the membership view of a container.
func (m *MemberStore) Get(ctx context.Context, ref models.ContainerRef) (*models.Container, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	c, err := m.lookupLocked(ref)
	if err != nil {
		return nil, err
	}
	out := *c
	out.Members = cloneMembers(c.Members)
	return &out, nil
}

// Update replaces the member list when version matches the stored one.
func (m *MemberStore) Update(ctx context.Context, ref models.ContainerRef, members []models.MemberEntry, version int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	c, err := m.lookupLocked(ref)
	if err != nil {
		return err
	}
	if c.Version != version {
		return store.ErrConcurrentModification
	}
	if members == nil {
		members = []models.MemberEntry{}
	}
	c.Members = cloneMembers(members)
	c.Version++
	return nil
}

func (m *MemberStore) lookupLocked(ref models.ContainerRef) (*models.Container, error) {
	switch ref.Type {
	case models.ContainerWorkspace:
		if ws, ok := m.s.data.workspaces[ref.ID]; ok {
			return &ws.Container, nil
		}
	case models.ContainerBoard:
		if b, ok := m.s.data.boards[ref.ID]; ok {
			return &b.Container, nil
		}
	default:
		return nil, models.ErrInvalidContainerType
	}
	return nil, store.ErrNotFound
}
