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

// MemberStore implements store.MemberStore over the members column of
// the boards and workspaces tables.
type MemberStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *MemberStore) conn() queryable {
	return conn(s.db, s.tx)
}

func memberTable(t models.ContainerType) (string, error) {
	switch t {
	case models.ContainerBoard:
		return "boards", nil
	case models.ContainerWorkspace:
		return "workspaces", nil
	default:
		return "", models.ErrInvalidContainerType
	}
}

// Get loads the membership view of a container.
func (s *MemberStore) Get(ctx context.Context, ref models.ContainerRef) (*models.Container, error) {
	table, err := memberTable(ref.Type)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(ref.ID); err != nil {
		return nil, store.ErrNotFound
	}

	workspaceCol := "''"
	if ref.Type == models.ContainerBoard {
		workspaceCol = "COALESCE(workspace_id::text, '')"
	}
	query := fmt.Sprintf(`SELECT id, owner_user_id, %s, members, version FROM %s WHERE id = $1`, workspaceCol, table)

	c := &models.Container{Type: ref.Type}
	var members []byte
	err = s.conn().QueryRowContext(ctx, query, ref.ID).Scan(&c.ID, &c.OwnerUserID, &c.WorkspaceID, &members, &c.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("querying members", err)
	}
	if c.Members, err = decodeMembers(members); err != nil {
		return nil, unavailable("decoding members", err)
	}
	return c, nil
}

// Update replaces the member list when the stored version matches.
func (s *MemberStore) Update(ctx context.Context, ref models.ContainerRef, members []models.MemberEntry, version int64) error {
	table, err := memberTable(ref.Type)
	if err != nil {
		return err
	}
	if members == nil {
		members = []models.MemberEntry{}
	}
	raw, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("encoding members: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET members = $2, version = version + 1, updated_at = $4
		WHERE id = $1 AND version = $3`, table)

	result, err := s.conn().ExecContext(ctx, query, ref.ID, raw, version, time.Now().UTC())
	if err != nil {
		return unavailable("updating members", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return unavailable("getting rows affected", err)
	}
	if n > 0 {
		return nil
	}

	// Distinguish a vanished row from a lost race.
	var exists bool
	if err := s.conn().QueryRowContext(ctx, fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, table), ref.ID).Scan(&exists); err != nil {
		return unavailable("checking container existence", err)
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrConcurrentModification
}
