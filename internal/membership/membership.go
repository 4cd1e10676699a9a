// Package membership maintains the member list embedded in boards and
// workspaces. The list is the single source of truth for who currently
// has access to a container.
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
)

// DefaultAttempts bounds the read-modify-write retries on version conflicts.
const DefaultAttempts = 5

// IsMember reports whether userID is the owner of c or appears in its member list.
func IsMember(c *models.Container, userID string) bool {
	return RoleOf(c, userID) != models.RoleNone
}

// RoleOf returns the role userID holds in c: owner, admin, member or none.
func RoleOf(c *models.Container, userID string) models.Role {
	if c == nil || userID == "" {
		return models.RoleNone
	}
	if c.OwnerUserID == userID {
		return models.RoleOwner
	}
	for _, m := range c.Members {
		if m.UserID == userID {
			return m.Role
		}
	}
	return models.RoleNone
}

// CanManage reports whether userID may invite or remove members of c.
// Workspaces are managed by their owner only; boards also by admins.
func CanManage(c *models.Container, userID string) bool {
	switch RoleOf(c, userID) {
	case models.RoleOwner:
		return true
	case models.RoleAdmin:
		return c.Type == models.ContainerBoard
	default:
		return false
	}
}

// WithMember returns the member list of c with userID appended. The second
// result is false when the list is unchanged because userID already has
// access.
func WithMember(c *models.Container, userID string, role models.Role, at time.Time) ([]models.MemberEntry, bool, error) {
	if !role.Assignable() {
		return nil, false, models.ErrInvalidRole
	}
	members := append([]models.MemberEntry(nil), c.Members...)
	if IsMember(c, userID) {
		return members, false, nil
	}
	return append(members, models.MemberEntry{UserID: userID, Role: role, AddedAt: at}), true, nil
}

// WithoutMember returns the member list of c without userID. Removing the
// owner fails with models.ErrForbidden.
func WithoutMember(c *models.Container, userID string) ([]models.MemberEntry, bool, error) {
	if c.OwnerUserID == userID {
		return nil, false, fmt.Errorf("cannot remove the owner: %w", models.ErrForbidden)
	}
	members := make([]models.MemberEntry, 0, len(c.Members))
	removed := false
	for _, m := range c.Members {
		if m.UserID == userID {
			removed = true
			continue
		}
		members = append(members, m)
	}
	return members, removed, nil
}

// Store applies member list changes through a store.MemberStore with
// optimistic concurrency.
type Store struct {
	store    store.Store
	attempts uint
	logger   *slog.Logger
}

// New creates a membership Store.
func New(st store.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		store:    st,
		attempts: DefaultAttempts,
		logger:   logger.With("component", "membership"),
	}
}

// With returns a copy bound to st, typically a transaction.
func (m *Store) With(st store.Store) *Store {
	c := *m
	c.store = st
	return &c
}

// Get loads the container.
func (m *Store) Get(ctx context.Context, ref models.ContainerRef) (*models.Container, error) {
	if !ref.Type.Valid() {
		return nil, models.ErrInvalidContainerType
	}
	c, err := m.store.Members().Get(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("loading %s %s: %w", ref.Type, ref.ID, err)
	}
	return c, nil
}

// Add appends userID with role. It is a no-op when userID already has access.
func (m *Store) Add(ctx context.Context, ref models.ContainerRef, userID string, role models.Role) (*models.Container, error) {
	c, _, err := m.update(ctx, ref, func(c *models.Container) ([]models.MemberEntry, bool, error) {
		return WithMember(c, userID, role, time.Now().UTC())
	})
	return c, err
}

// Remove drops userID from the member list. The boolean result reports
// whether an entry was actually removed.
func (m *Store) Remove(ctx context.Context, ref models.ContainerRef, userID string) (*models.Container, bool, error) {
	return m.update(ctx, ref, func(c *models.Container) ([]models.MemberEntry, bool, error) {
		return WithoutMember(c, userID)
	})
}

type mutation func(c *models.Container) ([]models.MemberEntry, bool, error)

// update runs a read-modify-write cycle, re-reading on version conflicts.
func (m *Store) update(ctx context.Context, ref models.ContainerRef, mutate mutation) (*models.Container, bool, error) {
	var (
		result  *models.Container
		changed bool
	)

	err := retry.Do(
		func() error {
			c, err := m.Get(ctx, ref)
			if err != nil {
				return err
			}
			members, ok, err := mutate(c)
			if err != nil {
				return err
			}
			if !ok {
				result, changed = c, false
				return nil
			}
			if err := m.store.Members().Update(ctx, ref, members, c.Version); err != nil {
				return err
			}
			c.Members = members
			c.Version++
			result, changed = c, true
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(m.attempts),
		retry.Delay(5*time.Millisecond),
		retry.MaxDelay(100*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, store.ErrConcurrentModification)
		}),
		retry.OnRetry(func(n uint, err error) {
			m.logger.Debug("member list changed concurrently, retrying",
				"container_id", ref.ID,
				"attempt", n+1,
			)
		}),
	)
	if err != nil {
		return nil, false, err
	}
	return result, changed, nil
}
