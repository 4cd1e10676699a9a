package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
)

// WorkspaceStore implements store.WorkspaceStore using PostgreSQL.
type WorkspaceStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

// conn returns the queryable connection (transaction or database).
func (s *WorkspaceStore) conn() queryable {
	return conn(s.db, s.tx)
}

const workspaceColumns = `
	id, owner_user_id, name, COALESCE(description, ''), members, version, created_at, updated_at`

// Create creates a new workspace.
func (s *WorkspaceStore) Create(ctx context.Context, ws *models.Workspace) error {
	if err := ws.Validate(); err != nil {
		return fmt.Errorf("validating workspace: %w", err)
	}

	if ws.ID == "" {
		ws.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = now
	}
	ws.UpdatedAt = ws.CreatedAt
	ws.Type = models.ContainerWorkspace
	ws.Version = 1
	if ws.Members == nil {
		ws.Members = []models.MemberEntry{}
	}

	members, err := json.Marshal(ws.Members)
	if err != nil {
		return fmt.Errorf("encoding members: %w", err)
	}

	query := `
		INSERT INTO workspaces (id, owner_user_id, name, description, members, version, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)`

	_, err = s.conn().ExecContext(ctx, query,
		ws.ID,
		ws.OwnerUserID,
		ws.Name,
		ws.Description,
		members,
		ws.Version,
		ws.CreatedAt,
		ws.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("owner: %w", store.ErrNotFound)
		}
		return unavailable("inserting workspace", err)
	}
	return nil
}

// Get retrieves a workspace by ID.
func (s *WorkspaceStore) Get(ctx context.Context, id string) (*models.Workspace, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrNotFound
	}

	query := `SELECT ` + workspaceColumns + ` FROM workspaces WHERE id = $1`

	ws, err := scanWorkspace(s.conn().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("querying workspace", err)
	}
	return ws, nil
}

// ListForUser retrieves workspaces owned by or shared with userID.
func (s *WorkspaceStore) ListForUser(ctx context.Context, userID string) ([]*models.Workspace, error) {
	query := `
		SELECT ` + workspaceColumns + `
		FROM workspaces
		WHERE owner_user_id::text = $1 OR members @> jsonb_build_array(jsonb_build_object('user_id', $1::text))
		ORDER BY created_at ASC`

	rows, err := s.conn().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, unavailable("querying workspaces", err)
	}
	defer rows.Close()

	workspaces := []*models.Workspace{}
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, unavailable("scanning workspace row", err)
		}
		workspaces = append(workspaces, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating workspace rows", err)
	}
	return workspaces, nil
}

// Update updates name and description.
func (s *WorkspaceStore) Update(ctx context.Context, ws *models.Workspace) error {
	if err := ws.Validate(); err != nil {
		return fmt.Errorf("validating workspace: %w", err)
	}

	ws.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE workspaces
		SET name = $2, description = NULLIF($3, ''), updated_at = $4
		WHERE id = $1`

	result, err := s.conn().ExecContext(ctx, query, ws.ID, ws.Name, ws.Description, ws.UpdatedAt)
	if err != nil {
		return unavailable("updating workspace", err)
	}
	return expectRow(result)
}

// Delete deletes a workspace; its boards, lists and cards go with it.
func (s *WorkspaceStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return store.ErrNotFound
	}

	// Invitations reference containers loosely, so clear them explicitly.
	cleanup := `
		DELETE FROM invitations
		WHERE container_id = $1
		   OR container_id IN (SELECT id FROM boards WHERE workspace_id = $1)`
	if _, err := s.conn().ExecContext(ctx, cleanup, id); err != nil {
		return unavailable("deleting workspace invitations", err)
	}

	result, err := s.conn().ExecContext(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return unavailable("deleting workspace", err)
	}
	return expectRow(result)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkspace(row rowScanner) (*models.Workspace, error) {
	ws := &models.Workspace{}
	var members []byte
	err := row.Scan(
		&ws.ID,
		&ws.OwnerUserID,
		&ws.Name,
		&ws.Description,
		&members,
		&ws.Version,
		&ws.CreatedAt,
		&ws.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ws.Type = models.ContainerWorkspace
	if ws.Members, err = decodeMembers(members); err != nil {
		return nil, err
	}
	return ws, nil
}

func decodeMembers(raw []byte) ([]models.MemberEntry, error) {
	members := []models.MemberEntry{}
	if len(raw) == 0 {
		return members, nil
	}
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("decoding members: %w", err)
	}
	return members, nil
}

// expectRow maps "no rows affected" to store.ErrNotFound.
func expectRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return unavailable("getting rows affected", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
