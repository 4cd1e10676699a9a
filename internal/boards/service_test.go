package boards

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
	"github.com/narvanalabs/boardroom/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, names ...string) (*Service, *memory.Store, map[string]string) {
	t.Helper()
	mem := memory.New()
	ids := map[string]string{}
	for _, n := range names {
		rec := &store.UserRecord{User: models.User{Username: n}}
		require.NoError(t, mem.Users().Create(context.Background(), rec))
		ids[n] = rec.ID
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewService(mem, logger), mem, ids
}

func addMember(t *testing.T, mem *memory.Store, ref models.ContainerRef, userID string, role models.Role) {
	t.Helper()
	ctx := context.Background()
	c, err := mem.Members().Get(ctx, ref)
	require.NoError(t, err)
	members := append(c.Members, models.MemberEntry{UserID: userID, Role: role, AddedAt: time.Now()})
	require.NoError(t, mem.Members().Update(ctx, ref, members, c.Version))
}

func TestWorkspaceLifecycle(t *testing.T) {
	svc, mem, ids := setup(t, "alice", "bob")
	ctx := context.Background()

	ws, err := svc.CreateWorkspace(ctx, ids["alice"], "  Team  ", "")
	require.NoError(t, err)
	assert.Equal(t, "Team", ws.Name)

	_, err = svc.CreateWorkspace(ctx, ids["alice"], " ", "")
	assert.ErrorIs(t, err, models.ErrWorkspaceNameRequired)

	_, err = svc.GetWorkspace(ctx, ids["bob"], ws.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	addMember(t, mem, ws.Ref(), ids["bob"], models.RoleMember)
	got, err := svc.GetWorkspace(ctx, ids["bob"], ws.ID)
	require.NoError(t, err)
	assert.Equal(t, ws.ID, got.ID)

	list, err := svc.ListWorkspaces(ctx, ids["bob"])
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.UpdateWorkspace(ctx, ids["bob"], ws.ID, "Mine", "")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	updated, err := svc.UpdateWorkspace(ctx, ids["alice"], ws.ID, "Renamed", "desc")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	assert.ErrorIs(t, svc.DeleteWorkspace(ctx, ids["bob"], ws.ID), models.ErrUnauthorized)
	require.NoError(t, svc.DeleteWorkspace(ctx, ids["alice"], ws.ID))
	_, err = svc.GetWorkspace(ctx, ids["alice"], ws.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateBoardInWorkspaceRequiresAccess(t *testing.T) {
	svc, mem, ids := setup(t, "alice", "bob")
	ctx := context.Background()

	ws, err := svc.CreateWorkspace(ctx, ids["alice"], "Team", "")
	require.NoError(t, err)

	_, err = svc.CreateBoard(ctx, ids["bob"], "Roadmap", "", ws.ID)
	assert.ErrorIs(t, err, models.ErrNotWorkspaceMember)

	addMember(t, mem, ws.Ref(), ids["bob"], models.RoleMember)
	b, err := svc.CreateBoard(ctx, ids["bob"], "Roadmap", "blue", ws.ID)
	require.NoError(t, err)
	assert.Equal(t, ids["bob"], b.OwnerUserID)
	assert.Equal(t, ws.ID, b.WorkspaceID)

	// alice owns the workspace but is not on bob's board.
	visible, err := svc.ListWorkspaceBoards(ctx, ids["alice"], ws.ID)
	require.NoError(t, err)
	assert.Empty(t, visible)
	visible, err = svc.ListWorkspaceBoards(ctx, ids["bob"], ws.ID)
	require.NoError(t, err)
	assert.Len(t, visible, 1)
}

func TestBoardPermissions(t *testing.T) {
	svc, mem, ids := setup(t, "alice", "bob", "carol")
	ctx := context.Background()

	b, err := svc.CreateBoard(ctx, ids["alice"], "Plan", "", "")
	require.NoError(t, err)
	addMember(t, mem, b.Ref(), ids["bob"], models.RoleAdmin)
	addMember(t, mem, b.Ref(), ids["carol"], models.RoleMember)

	_, err = svc.UpdateBoard(ctx, ids["carol"], b.ID, "X", "")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	updated, err := svc.UpdateBoard(ctx, ids["bob"], b.ID, "Plan v2", "green")
	require.NoError(t, err)
	assert.Equal(t, "Plan v2", updated.Title)

	assert.ErrorIs(t, svc.DeleteBoard(ctx, ids["bob"], b.ID), models.ErrUnauthorized)
	require.NoError(t, svc.DeleteBoard(ctx, ids["alice"], b.ID))
}

func TestListsAndCards(t *testing.T) {
	svc, _, ids := setup(t, "alice", "mallory")
	ctx := context.Background()

	b, err := svc.CreateBoard(ctx, ids["alice"], "Plan", "", "")
	require.NoError(t, err)

	_, err = svc.CreateList(ctx, ids["mallory"], b.ID, "Todo")
	assert.ErrorIs(t, err, models.ErrForbidden)

	todo, err := svc.CreateList(ctx, ids["alice"], b.ID, "Todo")
	require.NoError(t, err)
	done, err := svc.CreateList(ctx, ids["alice"], b.ID, "Done")
	require.NoError(t, err)
	assert.Equal(t, 0, todo.Position)
	assert.Equal(t, 1, done.Position)

	renamed, err := svc.RenameList(ctx, ids["alice"], done.ID, "Shipped")
	require.NoError(t, err)
	assert.Equal(t, "Shipped", renamed.Title)

	title := "Write docs"
	due := time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)
	card, err := svc.CreateCard(ctx, ids["alice"], todo.ID, CardInput{Title: &title, DueAt: &due})
	require.NoError(t, err)
	require.NotNil(t, card.DueAt)

	_, err = svc.CreateCard(ctx, ids["alice"], todo.ID, CardInput{})
	assert.ErrorIs(t, err, models.ErrCardTitleRequired)

	_, err = svc.ListCards(ctx, ids["mallory"], todo.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	desc := "all of them"
	card, err = svc.UpdateCard(ctx, ids["alice"], card.ID, CardInput{Description: &desc, ClearDueAt: true})
	require.NoError(t, err)
	assert.Equal(t, "Write docs", card.Title)
	assert.Equal(t, desc, card.Description)
	assert.Nil(t, card.DueAt)

	moved, err := svc.MoveCard(ctx, ids["alice"], card.ID, done.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, done.ID, moved.ListID)

	cards, err := svc.ListCards(ctx, ids["alice"], done.ID)
	require.NoError(t, err)
	assert.Len(t, cards, 1)
	cards, err = svc.ListCards(ctx, ids["alice"], todo.ID)
	require.NoError(t, err)
	assert.Empty(t, cards)

	other, err := svc.CreateBoard(ctx, ids["alice"], "Other", "", "")
	require.NoError(t, err)
	elsewhere, err := svc.CreateList(ctx, ids["alice"], other.ID, "Elsewhere")
	require.NoError(t, err)
	_, err = svc.MoveCard(ctx, ids["alice"], card.ID, elsewhere.ID, 0)
	assert.ErrorIs(t, err, models.ErrForbidden)

	require.NoError(t, svc.DeleteCard(ctx, ids["alice"], card.ID))
	require.NoError(t, svc.DeleteList(ctx, ids["alice"], todo.ID))
	lists, err := svc.ListLists(ctx, ids["alice"], b.ID)
	require.NoError(t, err)
	assert.Len(t, lists, 1)
}

func pendingInbox(t *testing.T, mem *memory.Store, userID string) []*models.Invitation {
	t.Helper()
	invs, err := mem.Invitations().ListByUser(context.Background(), userID, []models.InvitationStatus{models.InvitationStatusPending})
	require.NoError(t, err)
	return invs
}

func invitePending(t *testing.T, mem *memory.Store, ref models.ContainerRef, inviter, invitee string) {
	t.Helper()
	inv := &models.Invitation{
		ContainerType:   ref.Type,
		ContainerID:     ref.ID,
		InvitedUserID:   invitee,
		InvitedByUserID: inviter,
		Role:            models.RoleMember,
	}
	require.NoError(t, mem.Invitations().Insert(context.Background(), inv))
}

func TestDeleteWorkspaceClearsInvitations(t *testing.T) {
	svc, mem, ids := setup(t, "alice", "bob", "carol")
	ctx := context.Background()

	ws, err := svc.CreateWorkspace(ctx, ids["alice"], "Team", "")
	require.NoError(t, err)
	b, err := svc.CreateBoard(ctx, ids["alice"], "Roadmap", "", ws.ID)
	require.NoError(t, err)
	other, err := svc.CreateBoard(ctx, ids["alice"], "Personal", "", "")
	require.NoError(t, err)

	invitePending(t, mem, ws.Ref(), ids["alice"], ids["bob"])
	invitePending(t, mem, b.Ref(), ids["alice"], ids["bob"])
	invitePending(t, mem, other.Ref(), ids["alice"], ids["carol"])
	require.Len(t, pendingInbox(t, mem, ids["bob"]), 2)

	assert.ErrorIs(t, svc.DeleteWorkspace(ctx, ids["bob"], ws.ID), models.ErrUnauthorized)
	require.Len(t, pendingInbox(t, mem, ids["bob"]), 2)

	require.NoError(t, svc.DeleteWorkspace(ctx, ids["alice"], ws.ID))
	assert.Empty(t, pendingInbox(t, mem, ids["bob"]))
	assert.Len(t, pendingInbox(t, mem, ids["carol"]), 1, "invitations to unrelated boards stay")

	_, err = mem.Boards().Get(ctx, b.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteBoardClearsInvitations(t *testing.T) {
	svc, mem, ids := setup(t, "alice", "bob")
	ctx := context.Background()

	b, err := svc.CreateBoard(ctx, ids["alice"], "Roadmap", "", "")
	require.NoError(t, err)
	invitePending(t, mem, b.Ref(), ids["alice"], ids["bob"])

	require.NoError(t, svc.DeleteBoard(ctx, ids["alice"], b.ID))
	assert.Empty(t, pendingInbox(t, mem, ids["bob"]))
}
