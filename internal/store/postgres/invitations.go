package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
)

// InvitationStore implements store.InvitationStore using PostgreSQL.
type InvitationStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *InvitationStore) conn() queryable {
	return conn(s.db, s.tx)
}

const invitationColumns = `
	id, container_type, container_id, invited_user_id, invited_by_user_id,
	role, status, created_at, resolved_at`

// Insert creates a pending invitation.
func (s *InvitationStore) Insert(ctx context.Context, inv *models.Invitation) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	if inv.Status == "" {
		inv.Status = models.InvitationStatusPending
	}

	// ON CONFLICT keeps an enclosing transaction usable when the pair
	// already has a pending row.
	query := `
		INSERT INTO invitations (id, container_type, container_id, invited_user_id, invited_by_user_id, role, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (container_id, invited_user_id) WHERE status = 'pending' DO NOTHING`

	result, err := s.conn().ExecContext(ctx, query,
		inv.ID,
		string(inv.ContainerType),
		inv.ContainerID,
		inv.InvitedUserID,
		inv.InvitedByUserID,
		string(inv.Role),
		string(inv.Status),
		inv.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateKey
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("invited user: %w", store.ErrNotFound)
		}
		return unavailable("inserting invitation", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return unavailable("getting rows affected", err)
	}
	if n == 0 {
		return store.ErrDuplicateKey
	}
	return nil
}

// Get retrieves an invitation by ID.
func (s *InvitationStore) Get(ctx context.Context, id string) (*models.Invitation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrNotFound
	}

	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`

	inv, err := scanInvitation(s.conn().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("querying invitation", err)
	}
	return inv, nil
}

// ListByPair retrieves all invitations for the pair, newest first.
func (s *InvitationStore) ListByPair(ctx context.Context, containerID, userID string) ([]*models.Invitation, error) {
	if !validUUIDs(containerID, userID) {
		return []*models.Invitation{}, nil
	}
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE container_id = $1 AND invited_user_id = $2
		ORDER BY created_at DESC`
	return s.queryInvitations(ctx, query, containerID, userID)
}

// ListPending retrieves pending invitations for containerID addressed to any of userIDs.
func (s *InvitationStore) ListPending(ctx context.Context, containerID string, userIDs []string) ([]*models.Invitation, error) {
	ids := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if validUUIDs(id) {
			ids = append(ids, id)
		}
	}
	if !validUUIDs(containerID) || len(ids) == 0 {
		return []*models.Invitation{}, nil
	}
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE container_id = $1 AND invited_user_id = ANY($2::uuid[]) AND status = 'pending'
		ORDER BY created_at DESC`
	return s.queryInvitations(ctx, query, containerID, pq.Array(ids))
}

// ListByContainer retrieves every invitation for containerID, newest first.
func (s *InvitationStore) ListByContainer(ctx context.Context, containerID string) ([]*models.Invitation, error) {
	if !validUUIDs(containerID) {
		return []*models.Invitation{}, nil
	}
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE container_id = $1
		ORDER BY created_at DESC`
	return s.queryInvitations(ctx, query, containerID)
}

// ListByUser retrieves invitations addressed to userID in the given statuses.
// An empty statuses slice matches every status.
func (s *InvitationStore) ListByUser(ctx context.Context, userID string, statuses []models.InvitationStatus) ([]*models.Invitation, error) {
	if !validUUIDs(userID) {
		return []*models.Invitation{}, nil
	}
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE invited_user_id = $1 AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
		ORDER BY created_at DESC`
	return s.queryInvitations(ctx, query, userID, pq.Array(statusStrings(statuses)))
}

// UpdateStatus moves the invitation to status if its current status is one of from.
func (s *InvitationStore) UpdateStatus(ctx context.Context, id string, from []models.InvitationStatus, status models.InvitationStatus, at time.Time) error {
	if !validUUIDs(id) {
		return store.ErrNotFound
	}
	query := `
		UPDATE invitations
		SET status = $2, resolved_at = $3
		WHERE id = $1 AND status = ANY($4::text[])`

	result, err := s.conn().ExecContext(ctx, query, id, string(status), at, pq.Array(statusStrings(from)))
	if err != nil {
		return unavailable("updating invitation status", err)
	}
	return expectRow(result)
}

// UpdatePairStatus moves every invitation of the pair in one of from to status.
func (s *InvitationStore) UpdatePairStatus(ctx context.Context, containerID, userID string, from []models.InvitationStatus, status models.InvitationStatus, at time.Time) (int, error) {
	if !validUUIDs(containerID, userID) {
		return 0, nil
	}
	query := `
		UPDATE invitations
		SET status = $3, resolved_at = $4
		WHERE container_id = $1 AND invited_user_id = $2 AND status = ANY($5::text[])`

	result, err := s.conn().ExecContext(ctx, query, containerID, userID, string(status), at, pq.Array(statusStrings(from)))
	if err != nil {
		return 0, unavailable("updating pair invitations", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, unavailable("getting rows affected", err)
	}
	return int(n), nil
}

// DeletePair removes the pair's invitations whose status is in statuses.
func (s *InvitationStore) DeletePair(ctx context.Context, containerID, userID string, statuses []models.InvitationStatus) (int, error) {
	if !validUUIDs(containerID, userID) || len(statuses) == 0 {
		return 0, nil
	}
	query := `
		DELETE FROM invitations
		WHERE container_id = $1 AND invited_user_id = $2 AND status = ANY($3::text[])`

	result, err := s.conn().ExecContext(ctx, query, containerID, userID, pq.Array(statusStrings(statuses)))
	if err != nil {
		return 0, unavailable("deleting pair invitations", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, unavailable("getting rows affected", err)
	}
	return int(n), nil
}

func (s *InvitationStore) queryInvitations(ctx context.Context, query string, args ...any) ([]*models.Invitation, error) {
	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("querying invitations", err)
	}
	defer rows.Close()

	invitations := []*models.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, unavailable("scanning invitation row", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating invitation rows", err)
	}
	return invitations, nil
}

func scanInvitation(row rowScanner) (*models.Invitation, error) {
	var inv models.Invitation
	var containerType, role, status string
	var resolvedAt sql.NullTime

	err := row.Scan(
		&inv.ID,
		&containerType,
		&inv.ContainerID,
		&inv.InvitedUserID,
		&inv.InvitedByUserID,
		&role,
		&status,
		&inv.CreatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.ContainerType = models.ContainerType(containerType)
	inv.Role = models.Role(role)
	inv.Status = models.InvitationStatus(status)
	if resolvedAt.Valid {
		inv.ResolvedAt = &resolvedAt.Time
	}
	return &inv, nil
}

func statusStrings(statuses []models.InvitationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func validUUIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}
