// Package invitation owns invitation records and their status lifecycle.
//
// An invitation starts pending and moves exactly once to one of the terminal
// statuses. A pair (container, invited user) holds at most one pending
// invitation; once the previous one is declined, cancelled or removed a new
// pending invitation may be issued, which supersedes the stale record.
package invitation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
)

// Ledger manages invitations through a store.InvitationStore.
type Ledger struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Ledger.
func New(st store.Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:  st,
		logger: logger.With("component", "invitation_ledger"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// With returns a copy bound to st, typically a transaction.
func (l *Ledger) With(st store.Store) *Ledger {
	c := *l
	c.store = st
	return &c
}

// reissuable lists the statuses a new pending invitation supersedes.
var reissuable = []models.InvitationStatus{
	models.InvitationStatusDeclined,
	models.InvitationStatusCancelled,
	models.InvitationStatusRemoved,
}

var pendingOnly = []models.InvitationStatus{models.InvitationStatusPending}

// Create issues a pending invitation for the pair. Stale declined, cancelled
// or removed records of the pair are deleted first. It fails with
// models.ErrAlreadyPending when the pair already has a pending invitation.
func (l *Ledger) Create(ctx context.Context, containerType models.ContainerType, containerID, invitedUserID, invitedByUserID string, role models.Role) (*models.Invitation, error) {
	if !containerType.Valid() {
		return nil, models.ErrInvalidContainerType
	}
	if !role.Assignable() {
		return nil, models.ErrInvalidRole
	}

	cleared, err := l.store.Invitations().DeletePair(ctx, containerID, invitedUserID, reissuable)
	if err != nil {
		return nil, fmt.Errorf("clearing stale invitations: %w", err)
	}
	if cleared > 0 {
		l.logger.Debug("superseded stale invitations",
			"container_id", containerID,
			"user_id", invitedUserID,
			"count", cleared,
		)
	}

	inv := &models.Invitation{
		ContainerType:   containerType,
		ContainerID:     containerID,
		InvitedUserID:   invitedUserID,
		InvitedByUserID: invitedByUserID,
		Role:            role,
		Status:          models.InvitationStatusPending,
		CreatedAt:       l.now(),
	}
	if err := l.store.Invitations().Insert(ctx, inv); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, models.ErrAlreadyPending
		}
		return nil, fmt.Errorf("inserting invitation: %w", err)
	}
	return inv, nil
}

// Get retrieves an invitation by ID.
func (l *Ledger) Get(ctx context.Context, id string) (*models.Invitation, error) {
	inv, err := l.store.Invitations().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting invitation %s: %w", id, err)
	}
	return inv, nil
}

// Transition moves a pending invitation to a terminal status. It fails with
// models.ErrAlreadyResolved when the invitation is no longer pending.
func (l *Ledger) Transition(ctx context.Context, id string, status models.InvitationStatus) (*models.Invitation, error) {
	if !status.Terminal() {
		return nil, models.ErrInvalidStatus
	}

	inv, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inv.IsPending() {
		return nil, models.ErrAlreadyResolved
	}

	at := l.now()
	if err := l.store.Invitations().UpdateStatus(ctx, id, pendingOnly, status, at); err != nil {
		// Lost a race with another transition.
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.ErrAlreadyResolved
		}
		return nil, fmt.Errorf("updating invitation status: %w", err)
	}
	inv.Status = status
	inv.ResolvedAt = &at
	return inv, nil
}

// FindPending returns the pending invitations of containerID addressed to any of userIDs.
func (l *Ledger) FindPending(ctx context.Context, containerID string, userIDs []string) ([]*models.Invitation, error) {
	if len(userIDs) == 0 {
		return []*models.Invitation{}, nil
	}
	invs, err := l.store.Invitations().ListPending(ctx, containerID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("listing pending invitations: %w", err)
	}
	return invs, nil
}

// FindByPair returns the most recent invitation of the pair, or
// models.ErrNotFound when the pair has none.
func (l *Ledger) FindByPair(ctx context.Context, containerID, userID string) (*models.Invitation, error) {
	invs, err := l.store.Invitations().ListByPair(ctx, containerID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing pair invitations: %w", err)
	}
	if len(invs) == 0 {
		return nil, models.ErrNotFound
	}
	return invs[0], nil
}

// Retirement reports how many records Retire changed.
type Retirement struct {
	Cancelled int
	Removed   int
}

// Retire closes out the pair after its membership ended: a pending
// invitation becomes cancelled and an accepted one becomes removed.
func (l *Ledger) Retire(ctx context.Context, containerID, userID string) (Retirement, error) {
	var r Retirement
	at := l.now()

	n, err := l.store.Invitations().UpdatePairStatus(ctx, containerID, userID,
		pendingOnly, models.InvitationStatusCancelled, at)
	if err != nil {
		return r, fmt.Errorf("cancelling pending invitations: %w", err)
	}
	r.Cancelled = n

	n, err = l.store.Invitations().UpdatePairStatus(ctx, containerID, userID,
		[]models.InvitationStatus{models.InvitationStatusAccepted}, models.InvitationStatusRemoved, at)
	if err != nil {
		return r, fmt.Errorf("marking accepted invitations removed: %w", err)
	}
	r.Removed = n
	return r, nil
}

// ListForUser returns the invitations addressed to userID, newest first,
// restricted to statuses when any are given.
func (l *Ledger) ListForUser(ctx context.Context, userID string, statuses ...models.InvitationStatus) ([]*models.Invitation, error) {
	for _, s := range statuses {
		if !s.Valid() {
			return nil, models.ErrInvalidStatus
		}
	}
	invs, err := l.store.Invitations().ListByUser(ctx, userID, statuses)
	if err != nil {
		return nil, fmt.Errorf("listing user invitations: %w", err)
	}
	return invs, nil
}

// ListForContainer returns every invitation of containerID, newest first.
func (l *Ledger) ListForContainer(ctx context.Context, containerID string) ([]*models.Invitation, error) {
	invs, err := l.store.Invitations().ListByContainer(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("listing container invitations: %w", err)
	}
	return invs, nil
}
