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

// CardStore implements store.CardStore using PostgreSQL.
type CardStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *CardStore) conn() queryable {
	return conn(s.db, s.tx)
}

const cardColumns = `
	id, list_id, board_id, title, COALESCE(description, ''), due_at, position, created_at, updated_at`

// Create creates a new card.
func (s *CardStore) Create(ctx context.Context, card *models.Card) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("validating card: %w", err)
	}
	if card.ID == "" {
		card.ID = uuid.New().String()
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Now().UTC()
	}
	card.UpdatedAt = card.CreatedAt

	query := `
		INSERT INTO cards (id, list_id, board_id, title, description, due_at, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)`

	_, err := s.conn().ExecContext(ctx, query,
		card.ID,
		card.ListID,
		card.BoardID,
		card.Title,
		card.Description,
		card.DueAt,
		card.Position,
		card.CreatedAt,
		card.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("list or board: %w", store.ErrNotFound)
		}
		return unavailable("inserting card", err)
	}
	return nil
}

// Get retrieves a card by ID.
func (s *CardStore) Get(ctx context.Context, id string) (*models.Card, error) {
	if !validUUIDs(id) {
		return nil, store.ErrNotFound
	}

	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`

	card, err := scanCard(s.conn().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("querying card", err)
	}
	return card, nil
}

// ListByList retrieves the cards of a list in position order.
func (s *CardStore) ListByList(ctx context.Context, listID string) ([]*models.Card, error) {
	if !validUUIDs(listID) {
		return []*models.Card{}, nil
	}

	query := `
		SELECT ` + cardColumns + `
		FROM cards
		WHERE list_id = $1
		ORDER BY position ASC, created_at ASC`

	rows, err := s.conn().QueryContext(ctx, query, listID)
	if err != nil {
		return nil, unavailable("querying cards", err)
	}
	defer rows.Close()

	cards := []*models.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, unavailable("scanning card row", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating card rows", err)
	}
	return cards, nil
}

// Update updates the mutable card fields, including a move to another list.
func (s *CardStore) Update(ctx context.Context, card *models.Card) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("validating card: %w", err)
	}
	card.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE cards
		SET list_id = $2, title = $3, description = NULLIF($4, ''), due_at = $5, position = $6, updated_at = $7
		WHERE id = $1`

	result, err := s.conn().ExecContext(ctx, query,
		card.ID, card.ListID, card.Title, card.Description, card.DueAt, card.Position, card.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("list: %w", store.ErrNotFound)
		}
		return unavailable("updating card", err)
	}
	return expectRow(result)
}

// Delete deletes a card.
func (s *CardStore) Delete(ctx context.Context, id string) error {
	if !validUUIDs(id) {
		return store.ErrNotFound
	}
	result, err := s.conn().ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return unavailable("deleting card", err)
	}
	return expectRow(result)
}

func scanCard(row rowScanner) (*models.Card, error) {
	var c models.Card
	var dueAt sql.NullTime
	err := row.Scan(
		&c.ID,
		&c.ListID,
		&c.BoardID,
		&c.Title,
		&c.Description,
		&dueAt,
		&c.Position,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if dueAt.Valid {
		c.DueAt = &dueAt.Time
	}
	return &c, nil
}
