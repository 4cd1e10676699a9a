package auth

import (
	"context"
	"testing"
	"time"

	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdentity(t *testing.T) *Service {
	t.Helper()
	cfg := &Config{JWTSecret: []byte("0123456789abcdef0123456789abcdef"), TokenExpiry: time.Hour}
	return NewService(cfg, memory.New().Users(), nil)
}

func TestSignUpSignInSignOut(t *testing.T) {
	svc := newIdentity(t)
	ctx := context.Background()

	user, err := svc.SignUp(ctx, "alice", "Alice@Example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	_, err = svc.SignUp(ctx, "ALICE", "other@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrUserExists)

	_, _, err = svc.SignIn(ctx, "alice", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.SignIn(ctx, "nobody", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, signedIn, err := svc.SignIn(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, signedIn.ID)

	me, err := svc.CurrentUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)

	require.NoError(t, svc.SignOut(token))
	_, err = svc.CurrentUser(ctx, token)
	assert.ErrorIs(t, err, ErrRevokedToken)

	// A fresh sign-in still works after signing out.
	token, _, err = svc.SignIn(ctx, "alice", "correct horse")
	require.NoError(t, err)
	_, err = svc.CurrentUser(ctx, token)
	assert.NoError(t, err)
}

func TestSignUpValidation(t *testing.T) {
	svc := newIdentity(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "al", "", "correct horse")
	assert.ErrorIs(t, err, models.ErrUsernameInvalid)
	_, err = svc.SignUp(ctx, "alice", "not-an-email", "correct horse")
	assert.ErrorIs(t, err, models.ErrEmailInvalid)
	_, err = svc.SignUp(ctx, "alice", "", "short")
	assert.ErrorIs(t, err, models.ErrPasswordTooShort)
}

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc", ExtractBearerToken("Bearer abc"))
	assert.Equal(t, "abc", ExtractBearerToken("bearer  abc "))
	assert.Empty(t, ExtractBearerToken("Basic abc"))
	assert.Empty(t, ExtractBearerToken(""))
}
