package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/narvanalabs/boardroom/internal/directory"
	"github.com/narvanalabs/boardroom/internal/events"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
	"github.com/narvanalabs/boardroom/internal/store/memory"
	"github.com/stretchr/testify/require"
)

// world is a populated store plus a service under test.
type world struct {
	t      testing.TB
	mem    *memory.Store
	st     store.Store
	svc    *Service
	broker *events.Broker
	ids    map[string]string // username -> user ID
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newWorld(t testing.TB, names ...string) *world {
	t.Helper()
	mem := memory.New()
	w := &world{t: t, mem: mem, st: mem, ids: map[string]string{}}
	for _, n := range names {
		rec := &store.UserRecord{User: models.User{Username: n, Email: n + "@example.com"}}
		require.NoError(t, mem.Users().Create(context.Background(), rec))
		w.ids[n] = rec.ID
	}
	w.build()
	return w
}

// use swaps the store the service runs against, keeping the data.
func (w *world) use(st store.Store) {
	w.st = st
	w.build()
}

func (w *world) build() {
	logger := testLogger()
	w.broker = events.NewBroker(logger)
	w.svc = NewService(w.st, directory.New(w.st.Users(), 0, logger), w.broker, DefaultConfig(), logger)
}

func (w *world) id(name string) string {
	id, ok := w.ids[name]
	if !ok {
		w.t.Fatalf("unknown user %q", name)
	}
	return id
}

func (w *world) workspace(owner string) models.ContainerRef {
	w.t.Helper()
	ws := &models.Workspace{Container: models.Container{OwnerUserID: w.id(owner)}, Name: "W-" + owner}
	require.NoError(w.t, w.mem.Workspaces().Create(context.Background(), ws))
	return ws.Ref()
}

func (w *world) board(owner, workspaceID string) models.ContainerRef {
	w.t.Helper()
	b := &models.Board{Container: models.Container{OwnerUserID: w.id(owner), WorkspaceID: workspaceID}, Title: "B-" + owner}
	require.NoError(w.t, w.mem.Boards().Create(context.Background(), b))
	return b.Ref()
}

func (w *world) invite(ref models.ContainerRef, requester string, role models.Role, candidates ...string) *InviteResult {
	w.t.Helper()
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		if id, ok := w.ids[c]; ok {
			ids[i] = id
		} else {
			ids[i] = c
		}
	}
	res, err := w.svc.InviteUsers(context.Background(), InviteRequest{
		ContainerType:    ref.Type,
		ContainerID:      ref.ID,
		RequesterUserID:  w.id(requester),
		CandidateUserIDs: ids,
		Role:             role,
	})
	require.NoError(w.t, err)
	return res
}

// join invites user as a member on behalf of the owner and accepts.
func (w *world) join(ref models.ContainerRef, owner, user string, role models.Role) {
	w.t.Helper()
	res := w.invite(ref, owner, role, user)
	created := res.Created()
	require.Len(w.t, created, 1, "invite %s to %s: %+v", user, ref.ID, res.Results)
	_, err := w.svc.AcceptInvitation(context.Background(), created[0].ID, w.id(user))
	require.NoError(w.t, err)
}

func (w *world) container(ref models.ContainerRef) *models.Container {
	w.t.Helper()
	c, err := w.mem.Members().Get(context.Background(), ref)
	require.NoError(w.t, err)
	return c
}

func (w *world) pending(ref models.ContainerRef, user string) []*models.Invitation {
	w.t.Helper()
	invs, err := w.mem.Invitations().ListPending(context.Background(), ref.ID, []string{w.id(user)})
	require.NoError(w.t, err)
	return invs
}

func hasEntry(c *models.Container, userID string) bool {
	for _, m := range c.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

var errInjected = fmt.Errorf("injected: %w", models.ErrStoreUnavailable)

// faultyStore wraps the memory store and fails selected operations.
type faultyStore struct {
	store.Store
	failMemberUpdate map[string]bool // container ID -> fail Update
	failPairUpdates  bool
	failListPending  bool
}

func (f *faultyStore) Members() store.MemberStore {
	return &faultyMembers{MemberStore: f.Store.Members(), f: f}
}

func (f *faultyStore) Invitations() store.InvitationStore {
	return &faultyInvitations{InvitationStore: f.Store.Invitations(), f: f}
}

func (f *faultyStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return f.Store.WithTx(ctx, func(tx store.Store) error {
		view := *f
		view.Store = tx
		return fn(&view)
	})
}

type faultyMembers struct {
	store.MemberStore
	f *faultyStore
}

func (m *faultyMembers) Update(ctx context.Context, ref models.ContainerRef, members []models.MemberEntry, version int64) error {
	if m.f.failMemberUpdate[ref.ID] {
		return errInjected
	}
	return m.MemberStore.Update(ctx, ref, members, version)
}

type faultyInvitations struct {
	store.InvitationStore
	f *faultyStore
}

func (i *faultyInvitations) UpdatePairStatus(ctx context.Context, containerID, userID string, from []models.InvitationStatus, status models.InvitationStatus, at time.Time) (int, error) {
	if i.f.failPairUpdates {
		return 0, errInjected
	}
	return i.InvitationStore.UpdatePairStatus(ctx, containerID, userID, from, status, at)
}

func (i *faultyInvitations) ListPending(ctx context.Context, containerID string, userIDs []string) ([]*models.Invitation, error) {
	if i.f.failListPending {
		return nil, errInjected
	}
	return i.InvitationStore.ListPending(ctx, containerID, userIDs)
}
