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

// BoardStore implements store.BoardStore using PostgreSQL.
type BoardStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *BoardStore) conn() queryable {
	return conn(s.db, s.tx)
}

const boardColumns = `
	id, owner_user_id, COALESCE(workspace_id::text, ''), title, COALESCE(background, ''),
	members, version, created_at, updated_at`

// Create creates a new board.
func (s *BoardStore) Create(ctx context.Context, board *models.Board) error {
	if err := board.Validate(); err != nil {
		return fmt.Errorf("validating board: %w", err)
	}

	if board.ID == "" {
		board.ID = uuid.New().String()
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

	members, err := json.Marshal(board.Members)
	if err != nil {
		return fmt.Errorf("encoding members: %w", err)
	}

	query := `
		INSERT INTO boards (id, owner_user_id, workspace_id, title, background, members, version, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, NULLIF($5, ''), $6, $7, $8, $9)`

	_, err = s.conn().ExecContext(ctx, query,
		board.ID,
		board.OwnerUserID,
		board.WorkspaceID,
		board.Title,
		board.Background,
		members,
		board.Version,
		board.CreatedAt,
		board.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("owner or workspace: %w", store.ErrNotFound)
		}
		return unavailable("inserting board", err)
	}
	return nil
}

// Get retrieves a board by ID.
func (s *BoardStore) Get(ctx context.Context, id string) (*models.Board, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrNotFound
	}

	query := `SELECT ` + boardColumns + ` FROM boards WHERE id = $1`

	board, err := scanBoard(s.conn().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("querying board", err)
	}
	return board, nil
}

// ListForUser retrieves boards owned by or shared with userID.
func (s *BoardStore) ListForUser(ctx context.Context, userID string) ([]*models.Board, error) {
	query := `
		SELECT ` + boardColumns + `
		FROM boards
		WHERE owner_user_id::text = $1 OR members @> jsonb_build_array(jsonb_build_object('user_id', $1::text))
		ORDER BY created_at ASC`
	return s.queryBoards(ctx, query, userID)
}

// ListByWorkspace retrieves every board in the workspace.
func (s *BoardStore) ListByWorkspace(ctx context.Context, workspaceID string) ([]*models.Board, error) {
	if _, err := uuid.Parse(workspaceID); err != nil {
		return []*models.Board{}, nil
	}
	query := `SELECT ` + boardColumns + ` FROM boards WHERE workspace_id = $1 ORDER BY created_at ASC`
	return s.queryBoards(ctx, query, workspaceID)
}

// Update updates title and background.
func (s *BoardStore) Update(ctx context.Context, board *models.Board) error {
	if err := board.Validate(); err != nil {
		return fmt.Errorf("validating board: %w", err)
	}

	board.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE boards
		SET title = $2, background = NULLIF($3, ''), updated_at = $4
		WHERE id = $1`

	result, err := s.conn().ExecContext(ctx, query, board.ID, board.Title, board.Background, board.UpdatedAt)
	if err != nil {
		return unavailable("updating board", err)
	}
	return expectRow(result)
}

// Delete deletes a board and its invitations.
func (s *BoardStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return store.ErrNotFound
	}
	if _, err := s.conn().ExecContext(ctx, `DELETE FROM invitations WHERE container_id = $1`, id); err != nil {
		return unavailable("deleting board invitations", err)
	}
	result, err := s.conn().ExecContext(ctx, `DELETE FROM boards WHERE id = $1`, id)
	if err != nil {
		return unavailable("deleting board", err)
	}
	return expectRow(result)
}

func (s *BoardStore) queryBoards(ctx context.Context, query string, args ...any) ([]*models.Board, error) {
	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("querying boards", err)
	}
	defer rows.Close()

	boards := []*models.Board{}
	for rows.Next() {
		board, err := scanBoard(rows)
		if err != nil {
			return nil, unavailable("scanning board row", err)
		}
		boards = append(boards, board)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating board rows", err)
	}
	return boards, nil
}

func scanBoard(row rowScanner) (*models.Board, error) {
	board := &models.Board{}
	var members []byte
	err := row.Scan(
		&board.ID,
		&board.OwnerUserID,
		&board.WorkspaceID,
		&board.Title,
		&board.Background,
		&members,
		&board.Version,
		&board.CreatedAt,
		&board.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	board.Type = models.ContainerBoard
	if board.Members, err = decodeMembers(members); err != nil {
		return nil, err
	}
	return board, nil
}
