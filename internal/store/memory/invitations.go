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

// InvitationStore implements store.InvitationStore in memory.
type InvitationStore struct {
	s *Store
}

// Insert creates a pending invitation, rejecting a second pending one for the pair.
func (i *InvitationStore) Insert(ctx context.Context, inv *models.Invitation) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()

	if _, ok := i.s.data.users[inv.InvitedUserID]; !ok {
		return fmt.Errorf("invited user: %w", store.ErrNotFound)
	}
	if inv.Status == "" {
		inv.Status = models.InvitationStatusPending
	}
	if inv.Status == models.InvitationStatusPending {
		for _, existing := range i.s.data.invitations {
			if existing.ContainerID == inv.ContainerID && existing.InvitedUserID == inv.InvitedUserID && existing.IsPending() {
				return store.ErrDuplicateKey
			}
		}
	}
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	i.s.data.invitations[inv.ID] = cloneInvitation(inv)
	i.s.data.order[inv.ID] = i.s.next()
	return nil
}

// Get retrieves an invitation by ID.
func (i *InvitationStore) Get(ctx context.Context, id string) (*models.Invitation, error) {
	i.s.mu.RLock()
	defer i.s.mu.RUnlock()

	inv, ok := i.s.data.invitations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneInvitation(inv), nil
}

// ListByPair retrieves all invitations for the pair, newest first.
func (i *InvitationStore) ListByPair(ctx context.Context, containerID, userID string) ([]*models.Invitation, error) {
	return i.filter(func(inv *models.Invitation) bool {
		return inv.ContainerID == containerID && inv.InvitedUserID == userID
	}), nil
}

// ListPending retrieves pending invitations for containerID addressed to any of userIDs.
func (i *InvitationStore) ListPending(ctx context.Context, containerID string, userIDs []string) ([]*models.Invitation, error) {
	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	return i.filter(func(inv *models.Invitation) bool {
		return inv.ContainerID == containerID && inv.IsPending() && wanted[inv.InvitedUserID]
	}), nil
}

// ListByContainer retrieves every invitation for containerID, newest first.
func (i *InvitationStore) ListByContainer(ctx context.Context, containerID string) ([]*models.Invitation, error) {
	return i.filter(func(inv *models.Invitation) bool {
		return inv.ContainerID == containerID
	}), nil
}

// ListByUser retrieves invitations addressed to userID in the given statuses.
func (i *InvitationStore) ListByUser(ctx context.Context, userID string, statuses []models.InvitationStatus) ([]*models.Invitation, error) {
	return i.filter(func(inv *models.Invitation) bool {
		return inv.InvitedUserID == userID && (len(statuses) == 0 || statusIn(inv.Status, statuses))
	}), nil
}

// UpdateStatus moves the invitation to status if its current status is one of from.
func (i *InvitationStore) UpdateStatus(ctx context.Context, id string, from []models.InvitationStatus, status models.InvitationStatus, at time.Time) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()

	inv, ok := i.s.data.invitations[id]
	if !ok || !statusIn(inv.Status, from) {
		return store.ErrNotFound
	}
	inv.Status = status
	resolved := at
	inv.ResolvedAt = &resolved
	return nil
}

// UpdatePairStatus moves every invitation of the pair in one of from to status.
func (i *InvitationStore) UpdatePairStatus(ctx context.Context, containerID, userID string, from []models.InvitationStatus, status models.InvitationStatus, at time.Time) (int, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()

	n := 0
	for _, inv := range i.s.data.invitations {
		if inv.ContainerID == containerID && inv.InvitedUserID == userID && statusIn(inv.Status, from) {
			inv.Status = status
			resolved := at
			inv.ResolvedAt = &resolved
			n++
		}
	}
	return n, nil
}

// DeletePair removes the pair's invitations whose status is in statuses.
func (i *InvitationStore) DeletePair(ctx context.Context, containerID, userID string, statuses []models.InvitationStatus) (int, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()

	n := 0
	for id, inv := range i.s.data.invitations {
		if inv.ContainerID == containerID && inv.InvitedUserID == userID && statusIn(inv.Status, statuses) {
			delete(i.s.data.invitations, id)
			delete(i.s.data.order, id)
			n++
		}
	}
	return n, nil
}

// filter returns matching invitations newest first.
func (i *InvitationStore) filter(match func(*models.Invitation) bool) []*models.Invitation {
	i.s.mu.RLock()
	defer i.s.mu.RUnlock()

	out := []*models.Invitation{}
	for _, inv := range i.s.data.invitations {
		if match(inv) {
			out = append(out, cloneInvitation(inv))
		}
	}
	order := i.s.data.order
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return order[out[a].ID] > order[out[b].ID]
	})
	return out
}

func statusIn(s models.InvitationStatus, set []models.InvitationStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}
