package services

import (
	"context"
	"testing"

	"github.com/davidesra/fittrack/internal/auth"
	"github.com/davidesra/fittrack/internal/models"
	"github.com/davidesra/fittrack/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func createLocalUser(t *testing.T, s *store.Store, username, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
	}
	require.NoError(t, s.CreateUser(user))
	return user
}

func TestAuthenticate(t *testing.T) {
	s := newGarminTestStore(t)
	svc := NewUserService(s)
	createLocalUser(t, s, "alice", "correct-horse")

	user, err := svc.Authenticate(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = svc.Authenticate(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateGoogleOnlyAccount(t *testing.T) {
	s := newGarminTestStore(t)
	svc := NewUserService(s)

	_, err := s.UpsertGoogleUser("g-1", "g@example.com", "G User", "")
	require.NoError(t, err)
	googleUser, err := s.GetUserByEmail("g@example.com")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), googleUser.Username, "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateWithGoogle(t *testing.T) {
	s := newGarminTestStore(t)
	svc := NewUserService(s)

	user, err := svc.AuthenticateWithGoogle(context.Background(), &auth.GoogleUserInfo{
		ProviderUserID: "g-2",
		Email:          "new@example.com",
		Name:           "New User",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AuthSourceGoogle, user.AuthSource)

	again, err := svc.AuthenticateWithGoogle(context.Background(), &auth.GoogleUserInfo{
		ProviderUserID: "g-2",
		Email:          "new@example.com",
		Name:           "New User",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
}

func TestGetUserByID(t *testing.T) {
	s := newGarminTestStore(t)
	svc := NewUserService(s)
	user := createLocalUser(t, s, "alice", "pw")

	loaded, err := svc.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, loaded.ID)

	_, err = svc.GetUserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
