package services

import (
	"context"
	"errors"
	"log"

	"github.com/davidesra/fittrack/internal/auth"
	"github.com/davidesra/fittrack/internal/models"
	"github.com/davidesra/fittrack/internal/store"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
)

type UserService struct {
	store *store.Store
}

func NewUserService(s *store.Store) *UserService {
	return &UserService{store: s}
}

// Authenticate verifies a username/password pair against the local store.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		// Run a dummy compare so response timing does not reveal whether the
		// username exists.
		_ = bcrypt.CompareHashAndPassword(
			[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"),
			[]byte(password),
		)
		return nil, ErrInvalidCredentials
	}

	if user.PasswordHash == "" {
		// Google-only account; no password login.
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// AuthenticateWithGoogle creates or links a user from a completed Google
// sign-in.
func (s *UserService) AuthenticateWithGoogle(
	ctx context.Context,
	info *auth.GoogleUserInfo,
) (*models.User, error) {
	user, err := s.store.UpsertGoogleUser(info.ProviderUserID, info.Email, info.Name, info.AvatarURL)
	if err != nil {
		log.Printf("[Auth] Google upsert failed for email=%s: %v", info.Email, err)
		return nil, err
	}
	return user, nil
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.GetUserByID(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}
