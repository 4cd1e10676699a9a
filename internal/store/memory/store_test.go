package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, s *Store, username string) *store.UserRecord {
	t.Helper()
	rec := &store.UserRecord{User: models.User{Username: username, Email: username + "@example.com"}}
	require.NoError(t, s.Users().Create(context.Background(), rec))
	return rec
}

func TestUsersRejectCaseInsensitiveDuplicates(t *testing.T) {
	s := New()
	seedUser(t, s, "alice")

	err := s.Users().Create(context.Background(), &store.UserRecord{User: models.User{Username: "ALICE"}})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	got, err := s.Users().GetByLogin(context.Background(), "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
}

func TestSearchExcludesAndLimits(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	seedUser(t, s, "alina")
	seedUser(t, s, "albert")
	seedUser(t, s, "bob")

	users, err := s.Users().Search(ctx, "AL", alice.ID, 10)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "albert", users[0].Username)
	assert.Equal(t, "alina", users[1].Username)

	users, err = s.Users().Search(ctx, "al", "", 1)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

// For any number of insert attempts, a pair never holds more than one pending invitation.
func TestInsertKeepsOnePendingPerPair(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("one pending per pair", prop.ForAll(
		func(attempts int) bool {
			s := New()
			ctx := context.Background()
			owner := seedUser(t, s, "owner")
			bob := seedUser(t, s, "bob")
			board := &models.Board{Container: models.Container{OwnerUserID: owner.ID}, Title: "B"}
			if err := s.Boards().Create(ctx, board); err != nil {
				return false
			}

			ok := 0
			for i := 0; i < attempts; i++ {
				err := s.Invitations().Insert(ctx, &models.Invitation{
					ContainerType: models.ContainerBoard, ContainerID: board.ID,
					InvitedUserID: bob.ID, InvitedByUserID: owner.ID, Role: models.RoleMember,
				})
				if err == nil {
					ok++
				} else if !errors.Is(err, store.ErrDuplicateKey) {
					return false
				}
			}
			pending, _ := s.Invitations().ListPending(ctx, board.ID, []string{bob.ID})
			return ok == 1 && len(pending) == 1
		},
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}

func TestMemberUpdateVersioning(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := seedUser(t, s, "owner")
	ws := &models.Workspace{Container: models.Container{OwnerUserID: owner.ID}, Name: "Acme"}
	require.NoError(t, s.Workspaces().Create(ctx, ws))

	c, err := s.Members().Get(ctx, ws.Ref())
	require.NoError(t, err)

	entry := models.MemberEntry{UserID: "u1", Role: models.RoleMember, AddedAt: time.Now()}
	require.NoError(t, s.Members().Update(ctx, ws.Ref(), []models.MemberEntry{entry}, c.Version))
	err = s.Members().Update(ctx, ws.Ref(), nil, c.Version)
	assert.ErrorIs(t, err, store.ErrConcurrentModification)

	_, err = s.Members().Get(ctx, models.ContainerRef{Type: "team", ID: ws.ID})
	assert.ErrorIs(t, err, models.ErrInvalidContainerType)

	list, err := s.Workspaces().ListForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWithTxRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := seedUser(t, s, "owner")
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Store) error {
		ws := &models.Workspace{Container: models.Container{OwnerUserID: owner.ID}, Name: "Temp"}
		require.NoError(t, tx.Workspaces().Create(ctx, ws))
		return tx.WithTx(ctx, func(store.Store) error { return boom })
	})
	require.ErrorIs(t, err, boom)

	list, err := s.Workspaces().ListForUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteWorkspaceCascades(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := seedUser(t, s, "owner")
	bob := seedUser(t, s, "bob")

	ws := &models.Workspace{Container: models.Container{OwnerUserID: owner.ID}, Name: "Acme"}
	require.NoError(t, s.Workspaces().Create(ctx, ws))
	board := &models.Board{Container: models.Container{OwnerUserID: owner.ID, WorkspaceID: ws.ID}, Title: "Q3"}
	require.NoError(t, s.Boards().Create(ctx, board))
	list := &models.List{BoardID: board.ID, Title: "Todo"}
	require.NoError(t, s.Lists().Create(ctx, list))
	require.NoError(t, s.Cards().Create(ctx, &models.Card{ListID: list.ID, BoardID: board.ID, Title: "Ship"}))
	require.NoError(t, s.Invitations().Insert(ctx, &models.Invitation{
		ContainerType: models.ContainerBoard, ContainerID: board.ID,
		InvitedUserID: bob.ID, InvitedByUserID: owner.ID, Role: models.RoleMember,
	}))

	require.NoError(t, s.Workspaces().Delete(ctx, ws.ID))

	_, err := s.Boards().Get(ctx, board.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	cards, err := s.Cards().ListByList(ctx, list.ID)
	require.NoError(t, err)
	assert.Empty(t, cards)
	invs, err := s.Invitations().ListByUser(ctx, bob.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, invs)
}
