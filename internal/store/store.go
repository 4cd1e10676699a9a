// Package store provides database access interfaces and implementations.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/narvanalabs/boardroom/internal/models"
)

// Common store errors. Implementations return these (possibly wrapped) so that
// callers can classify failures without knowing the backing driver.
var (
	// ErrNotFound is returned when a requested row does not exist.
	// It matches models.ErrNotFound under errors.Is.
	ErrNotFound = fmt.Errorf("resource %w", models.ErrNotFound)
	// ErrDuplicateKey is returned when a uniqueness constraint rejects a write.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrConcurrentModification is returned when an optimistic version check fails.
	ErrConcurrentModification = errors.New("resource was modified by another request")
)

// UserRecord is a user row including its credential hash.
type UserRecord struct {
	models.User
	PasswordHash string `json:"-"`
}

// UserStore defines operations on user identities.
type UserStore interface {
	// Create inserts a new user. Username and email are unique.
	Create(ctx context.Context, user *UserRecord) error
	// Get retrieves a user by ID.
	Get(ctx context.Context, id string) (*models.User, error)
	// GetMany retrieves the users whose IDs are in ids. Unknown IDs are skipped.
	GetMany(ctx context.Context, ids []string) ([]*models.User, error)
	// GetByLogin retrieves a user record by username or email (case-insensitive).
	GetByLogin(ctx context.Context, login string) (*UserRecord, error)
	// Search returns users whose username or email contains query, case-insensitively,
	// excluding excludeID, capped at limit.
	Search(ctx context.Context, query, excludeID string, limit int) ([]*models.User, error)
}

// WorkspaceStore defines operations for workspace management.
type WorkspaceStore interface {
	// Create creates a new workspace.
	Create(ctx context.Context, ws *models.Workspace) error
	// Get retrieves a workspace by ID.
	Get(ctx context.Context, id string) (*models.Workspace, error)
	// ListForUser retrieves workspaces owned by or shared with userID.
	ListForUser(ctx context.Context, userID string) ([]*models.Workspace, error)
	// Update updates name and description.
	Update(ctx context.Context, ws *models.Workspace) error
	// Delete deletes a workspace and, through the schema, its boards.
	Delete(ctx context.Context, id string) error
}

// BoardStore defines operations for board management.
type BoardStore interface {
	// Create creates a new board.
	Create(ctx context.Context, board *models.Board) error
	// Get retrieves a board by ID.
	Get(ctx context.Context, id string) (*models.Board, error)
	// ListForUser retrieves boards owned by or shared with userID.
	ListForUser(ctx context.Context, userID string) ([]*models.Board, error)
	// ListByWorkspace retrieves every board whose workspace is workspaceID.
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*models.Board, error)
	// Update updates title and background.
	Update(ctx context.Context, board *models.Board) error
	// Delete deletes a board with its lists and cards.
	Delete(ctx context.Context, id string) error
}

// MemberStore reads and writes the denormalized member list of a container.
type MemberStore interface {
	// Get loads the membership view of a board or workspace.
	Get(ctx context.Context, ref models.ContainerRef) (*models.Container, error)
	// Update replaces the member list if the stored version equals version,
	// returning ErrConcurrentModification otherwise.
	Update(ctx context.Context, ref models.ContainerRef, members []models.MemberEntry, version int64) error
}

// InvitationStore defines operations on the invitation ledger table.
type InvitationStore interface {
	// Insert creates a pending invitation. It returns ErrDuplicateKey when a pending
	// invitation already exists for the (container, invited user) pair.
	Insert(ctx context.Context, inv *models.Invitation) error
	// Get retrieves an invitation by ID.
	Get(ctx context.Context, id string) (*models.Invitation, error)
	// ListByPair retrieves all invitations for the pair, newest first.
	ListByPair(ctx context.Context, containerID, userID string) ([]*models.Invitation, error)
	// ListPending retrieves pending invitations for containerID and any of userIDs.
	ListPending(ctx context.Context, containerID string, userIDs []string) ([]*models.Invitation, error)
	// ListByContainer retrieves every invitation for containerID, newest first.
	ListByContainer(ctx context.Context, containerID string) ([]*models.Invitation, error)
	// ListByUser retrieves invitations addressed to userID in the given statuses, newest first.
	ListByUser(ctx context.Context, userID string, statuses []models.InvitationStatus) ([]*models.Invitation, error)
	// UpdateStatus moves the invitation to status if its current status is one of from.
	// It returns ErrNotFound if no row matched.
	UpdateStatus(ctx context.Context, id string, from []models.InvitationStatus, status models.InvitationStatus, at time.Time) error
	// UpdatePairStatus moves every invitation of the pair whose status is in from to status
	// and returns the number of rows changed.
	UpdatePairStatus(ctx context.Context, containerID, userID string, from []models.InvitationStatus, status models.InvitationStatus, at time.Time) (int, error)
	// DeletePair removes invitations of the pair whose status is in statuses.
	DeletePair(ctx context.Context, containerID, userID string, statuses []models.InvitationStatus) (int, error)
}

// ListStore defines operations on board lists.
type ListStore interface {
	Create(ctx context.Context, list *models.List) error
	Get(ctx context.Context, id string) (*models.List, error)
	ListByBoard(ctx context.Context, boardID string) ([]*models.List, error)
	Update(ctx context.Context, list *models.List) error
	Delete(ctx context.Context, id string) error
}

// CardStore defines operations on cards.
type CardStore interface {
	Create(ctx context.Context, card *models.Card) error
	Get(ctx context.Context, id string) (*models.Card, error)
	ListByList(ctx context.Context, listID string) ([]*models.Card, error)
	Update(ctx context.Context, card *models.Card) error
	Delete(ctx context.Context, id string) error
}

// Store is the main interface for database operations.
type Store interface {
	// Users returns the UserStore.
	Users() UserStore
	// Workspaces returns the WorkspaceStore.
	Workspaces() WorkspaceStore
	// Boards returns the BoardStore.
	Boards() BoardStore
	// Members returns the MemberStore for board and workspace member lists.
	Members() MemberStore
	// Invitations returns the InvitationStore.
	Invitations() InvitationStore
	// Lists returns the ListStore.
	Lists() ListStore
	// Cards returns the CardStore.
	Cards() CardStore

	// WithTx executes the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// Otherwise, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
