package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
)

// ListStore implements store.ListStore using PostgreSQL.
type ListStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *ListStore) conn() queryable {
	return conn(s.db, s.tx)
}

// Create creates a new list.
func (s *ListStore) Create(ctx context.Context, list *models.List) error {
	if err := list.Validate(); err != nil {
		return fmt.Errorf("validating list: %w", err)
	}
	if list.ID == "" {
		list.ID = uuid.New().String()
	}
	if list.CreatedAt.IsZero() {
		list.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO lists (id, board_id, title, position, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.conn().ExecContext(ctx, query, list.ID, list.BoardID, list.Title, list.Position, list.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("board: %w", store.ErrNotFound)
		}
		return unavailable("inserting list", err)
	}
	return nil
}

// Get retrieves a list by ID.
func (s *ListStore) Get(ctx context.Context, id string) (*models.List, error) {
	if !validUUIDs(id) {
		return nil, store.ErrNotFound
	}

	query := `SELECT id, board_id, title, position, created_at FROM lists WHERE id = $1`

	var l models.List
	err := s.conn().QueryRowContext(ctx, query, id).Scan(&l.ID, &l.BoardID, &l.Title, &l.Position, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("querying list", err)
	}
	return &l, nil
}

// ListByBoard retrieves the lists of a board in position order.
func (s *ListStore) ListByBoard(ctx context.Context, boardID string) ([]*models.List, error) {
	if !validUUIDs(boardID) {
		return []*models.List{}, nil
	}

	query := `
		SELECT id, board_id, title, position, created_at
		FROM lists
		WHERE board_id = $1
		ORDER BY position ASC, created_at ASC`

	rows, err := s.conn().QueryContext(ctx, query, boardID)
	if err != nil {
		return nil, unavailable("querying lists", err)
	}
	defer rows.Close()

	lists := []*models.List{}
	for rows.Next() {
		var l models.List
		if err := rows.Scan(&l.ID, &l.BoardID, &l.Title, &l.Position, &l.CreatedAt); err != nil {
			return nil, unavailable("scanning list row", err)
		}
		lists = append(lists, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating list rows", err)
	}
	return lists, nil
}

// Update updates title and position.
func (s *ListStore) Update(ctx context.Context, list *models.List) error {
	if err := list.Validate(); err != nil {
		return fmt.Errorf("validating list: %w", err)
	}

	result, err := s.conn().ExecContext(ctx,
		`UPDATE lists SET title = $2, position = $3 WHERE id = $1`,
		list.ID, list.Title, list.Position,
	)
	if err != nil {
		return unavailable("updating list", err)
	}
	return expectRow(result)
}

// Delete deletes a list and its cards.
func (s *ListStore) Delete(ctx context.Context, id string) error {
	if !validUUIDs(id) {
		return store.ErrNotFound
	}
	result, err := s.conn().ExecContext(ctx, `DELETE FROM lists WHERE id = $1`, id)
	if err != nil {
		return unavailable("deleting list", err)
	}
	return expectRow(result)
}
