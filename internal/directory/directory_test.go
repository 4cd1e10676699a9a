package directory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
	"github.com/narvanalabs/boardroom/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, st *memory.Store, names ...string) map[string]*models.User {
	t.Helper()
	out := make(map[string]*models.User, len(names))
	for _, n := range names {
		rec := &store.UserRecord{User: models.User{Username: n, Email: n + "@example.com"}}
		require.NoError(t, st.Users().Create(context.Background(), rec))
		u := rec.User
		out[n] = &u
	}
	return out
}

func TestSearchBlankQueryIsEmpty(t *testing.T) {
	st := memory.New()
	seed(t, st, "alice")
	d := New(st.Users(), 0, nil)

	for _, q := range []string{"", "   ", "\t\n"} {
		users, err := d.Search(context.Background(), q, "")
		require.NoError(t, err)
		assert.Empty(t, users, "query %q", q)
	}
}

func TestSearchMatchesUsernameOrEmail(t *testing.T) {
	st := memory.New()
	users := seed(t, st, "alice", "bob", "carol")
	d := New(st.Users(), 0, nil)

	got, err := d.Search(context.Background(), "EXAMPLE", users["alice"].ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "bob", got[0].Username)
	assert.Equal(t, "carol", got[1].Username)
}

func TestSearchIgnoresAccents(t *testing.T) {
	st := memory.New()
	seed(t, st, "alice")
	rec := &store.UserRecord{User: models.User{Username: "jdiaz", Email: "josé@example.com"}}
	require.NoError(t, st.Users().Create(context.Background(), rec))
	d := New(st.Users(), 0, nil)

	for _, q := range []string{"jose", "JOSÉ", "José@"} {
		got, err := d.Search(context.Background(), q, "")
		require.NoError(t, err)
		require.Len(t, got, 1, "query %q", q)
		assert.Equal(t, rec.ID, got[0].ID)
	}
}

func TestSearchIsCapped(t *testing.T) {
	st := memory.New()
	seed(t, st, "user01", "user02", "user03", "user04", "user05")
	d := New(st.Users(), 3, nil)

	got, err := d.Search(context.Background(), "user", "")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

type failingUsers struct {
	store.UserStore
}

func (failingUsers) Search(context.Context, string, string, int) ([]*models.User, error) {
	return nil, models.ErrStoreUnavailable
}

func TestSearchFailureYieldsEmptyResultAndError(t *testing.T) {
	d := New(failingUsers{}, 0, nil)

	got, err := d.Search(context.Background(), "al", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrStoreUnavailable))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestIsSelfMatch(t *testing.T) {
	me := &models.User{Username: "José.Díaz", Email: "jd@example.com"}

	assert.True(t, IsSelfMatch(me, "jose"))
	assert.True(t, IsSelfMatch(me, "DIAZ"))
	assert.True(t, IsSelfMatch(me, "jd@"))
	assert.False(t, IsSelfMatch(me, ""))
	assert.False(t, IsSelfMatch(me, "  "))
	assert.False(t, IsSelfMatch(me, "carol"))
	assert.False(t, IsSelfMatch(nil, "jose"))

	noEmail := &models.User{Username: "bob"}
	assert.True(t, IsSelfMatch(noEmail, "BO"))
	assert.False(t, IsSelfMatch(noEmail, "example"))
}

// Any non-empty substring of the username, in any case, is a self match.
func TestIsSelfMatchSubstringProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("substrings of username match", prop.ForAll(
		func(username string, start, length int) bool {
			if start >= len(username) {
				start = len(username) - 1
			}
			end := start + length
			if end > len(username) {
				end = len(username)
			}
			query := strings.ToUpper(username[start:end])
			return IsSelfMatch(&models.User{Username: username}, query)
		},
		gen.Identifier().SuchThat(func(s string) bool { return len(s) >= 1 }),
		gen.IntRange(0, 20),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}

func TestResolveUsersSkipsUnknown(t *testing.T) {
	st := memory.New()
	users := seed(t, st, "alice", "bob")
	d := New(st.Users(), 0, nil)

	resolved, err := d.ResolveUsers(context.Background(), []string{users["alice"].ID, "ghost", users["bob"].ID})
	require.NoError(t, err)
	assert.Len(t, resolved, 2)
	assert.Contains(t, resolved, users["bob"].ID)
	assert.NotContains(t, resolved, "ghost")

	_, err = d.GetUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
