package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
	"github.com/stretchr/testify/require"
)

func getTestDSN() string {
	return os.Getenv("TEST_DATABASE_URL")
}

// setupTestDB opens the test database, resets it and applies the embedded migrations.
func setupTestDB(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := getTestDSN()
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("failed to ping database: %v", err)
	}

	for _, table := range []string{"cards", "lists", "invitations", "boards", "workspaces", "users", "goose_db_version"} {
		_, _ = db.Exec("DROP TABLE IF EXISTS " + table + " CASCADE")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	if err := Migrate(context.Background(), db, logger); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	s := newStore(db, logger)
	t.Cleanup(func() { s.Close() })
	return s
}

func resetTables(db *sql.DB) {
	db.Exec("DELETE FROM cards")
	db.Exec("DELETE FROM lists")
	db.Exec("DELETE FROM invitations")
	db.Exec("DELETE FROM boards")
	db.Exec("DELETE FROM workspaces")
	db.Exec("DELETE FROM users")
}

func createUser(t *testing.T, s *PostgresStore, username string) *store.UserRecord {
	t.Helper()
	rec := &store.UserRecord{
		User:         models.User{Username: username, Email: username + "@example.com"},
		PasswordHash: "x",
	}
	require.NoError(t, s.Users().Create(context.Background(), rec))
	return rec
}

// genUsername generates a valid username of 3 to 20 lowercase characters.
func genUsername() gopter.Gen {
	return gen.IntRange(3, 20).FlatMap(func(v interface{}) gopter.Gen {
		return gen.SliceOfN(v.(int), gen.AlphaLowerChar()).Map(func(chars []rune) string {
			return string(chars)
		})
	}, reflect.TypeOf(""))
}

// For any sequence of insert attempts on one pair, at most one pending
// invitation exists and every extra attempt reports a duplicate.
func TestInvitationOnePendingPerPair(t *testing.T) {
	s := setupTestDB(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)

	properties.Property("one pending invitation per pair", prop.ForAll(
		func(attempts int) bool {
			ctx := context.Background()
			resetTables(s.DB())

			owner := createUser(t, s, "owner"+uuid.NewString()[:8])
			invitee := createUser(t, s, "invitee"+uuid.NewString()[:8])
			board := &models.Board{Container: models.Container{OwnerUserID: owner.ID}, Title: "Roadmap"}
			if err := s.Boards().Create(ctx, board); err != nil {
				t.Logf("Create board error: %v", err)
				return false
			}

			inserted := 0
			for i := 0; i < attempts; i++ {
				err := s.Invitations().Insert(ctx, &models.Invitation{
					ContainerType:   models.ContainerBoard,
					ContainerID:     board.ID,
					InvitedUserID:   invitee.ID,
					InvitedByUserID: owner.ID,
					Role:            models.RoleMember,
				})
				switch {
				case err == nil:
					inserted++
				case errors.Is(err, store.ErrDuplicateKey):
				default:
					t.Logf("Insert error: %v", err)
					return false
				}
			}

			pending, err := s.Invitations().ListPending(ctx, board.ID, []string{invitee.ID})
			if err != nil {
				t.Logf("ListPending error: %v", err)
				return false
			}
			return inserted == 1 && len(pending) == 1
		},
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}

// For any user, creating then reading back preserves username and email.
func TestUserCreationRoundTrip(t *testing.T) {
	s := setupTestDB(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("user round-trip preserves data", prop.ForAll(
		func(username string) bool {
			ctx := context.Background()
			resetTables(s.DB())

			rec := createUser(t, s, username)
			got, err := s.Users().Get(ctx, rec.ID)
			if err != nil {
				t.Logf("Get error: %v", err)
				return false
			}
			byLogin, err := s.Users().GetByLogin(ctx, username+"@EXAMPLE.com")
			if err != nil {
				t.Logf("GetByLogin error: %v", err)
				return false
			}
			return got.Username == username && got.Email == username+"@example.com" && byLogin.ID == rec.ID
		},
		genUsername(),
	))

	properties.TestingRun(t)
}

func TestMemberUpdateDetectsConcurrentModification(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	owner := createUser(t, s, "owner")
	ws := &models.Workspace{Container: models.Container{OwnerUserID: owner.ID}, Name: "Acme"}
	require.NoError(t, s.Workspaces().Create(ctx, ws))

	ref := ws.Ref()
	c, err := s.Members().Get(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, int64(1), c.Version)

	var wg sync.WaitGroup
	results := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			members := []models.MemberEntry{{UserID: fmt.Sprintf("u%d", i), Role: models.RoleMember, AddedAt: time.Now().UTC()}}
			results[i] = s.Members().Update(ctx, ref, members, c.Version)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, store.ErrConcurrentModification)
	}
	require.Equal(t, 1, succeeded)

	after, err := s.Members().Get(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, int64(2), after.Version)
	require.Len(t, after.Members, 1)

	err = s.Members().Update(ctx, models.ContainerRef{Type: models.ContainerWorkspace, ID: uuid.NewString()}, nil, 1)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestInvitationTransitionsAndPairCleanup(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	owner := createUser(t, s, "owner")
	invitee := createUser(t, s, "invitee")
	board := &models.Board{Container: models.Container{OwnerUserID: owner.ID}, Title: "Launch"}
	require.NoError(t, s.Boards().Create(ctx, board))

	inv := &models.Invitation{
		ContainerType:   models.ContainerBoard,
		ContainerID:     board.ID,
		InvitedUserID:   invitee.ID,
		InvitedByUserID: owner.ID,
		Role:            models.RoleAdmin,
	}
	require.NoError(t, s.Invitations().Insert(ctx, inv))

	pending := []models.InvitationStatus{models.InvitationStatusPending}
	now := time.Now().UTC()
	require.NoError(t, s.Invitations().UpdateStatus(ctx, inv.ID, pending, models.InvitationStatusDeclined, now))
	err := s.Invitations().UpdateStatus(ctx, inv.ID, pending, models.InvitationStatusAccepted, now)
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.Invitations().Get(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationStatusDeclined, got.Status)
	require.NotNil(t, got.ResolvedAt)

	n, err := s.Invitations().DeletePair(ctx, board.ID, invitee.ID, []models.InvitationStatus{models.InvitationStatusDeclined})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	byUser, err := s.Invitations().ListByUser(ctx, invitee.ID, nil)
	require.NoError(t, err)
	require.Empty(t, byUser)

	require.NoError(t, s.Boards().Delete(ctx, board.ID))
	_, err = s.Boards().Get(ctx, board.ID)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	owner := createUser(t, s, "owner")
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Store) error {
		ws := &models.Workspace{Container: models.Container{OwnerUserID: owner.ID}, Name: "Temp"}
		if err := tx.Workspaces().Create(ctx, ws); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	list, err := s.Workspaces().ListForUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestUserSearchIgnoresAccents(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	rec := &store.UserRecord{User: models.User{Username: "jdiaz", Email: "josé@example.com"}, PasswordHash: "x"}
	require.NoError(t, s.Users().Create(ctx, rec))
	createUser(t, s, "alice")

	got, err := s.Users().Search(ctx, "JOSE", "", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, rec.ID, got[0].ID)

	// Rows written before search_key existed are filled in by Migrate.
	_, err = s.DB().Exec(`UPDATE users SET search_key = '' WHERE id = $1`, rec.ID)
	require.NoError(t, err)
	n, err := backfillSearchKeys(ctx, s.DB())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err = s.Users().Search(ctx, "josé", "", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
}
