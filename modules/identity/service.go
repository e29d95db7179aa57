// Package identity manages user accounts and opaque session tokens. Sessions
// live in Redis; the token format itself carries no claims.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/taskboard/domain/board"
	"github.com/example/taskboard/modules/cache"
)

// ErrInvalidCredentials is returned on a failed login attempt. The message is
// deliberately the same for unknown users and wrong passwords.
var ErrInvalidCredentials = errors.New("invalid username or password")

const sessionTTL = 24 * time.Hour

// SessionStore holds token -> user ID mappings with expiry. *cache.Cache
// satisfies it; tests use an in-memory map.
type SessionStore interface {
	SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string, dest any) (bool, error)
	Delete(ctx context.Context, key string) error
}

var _ SessionStore = (*cache.Cache)(nil)

// Service implements account and session operations.
type Service struct {
	repo     *Repository
	sessions SessionStore
}

// NewService creates an identity service.
func NewService(repo *Repository, sessions SessionStore) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
	}
}

// Register creates a new active account with a bcrypt-hashed password.
func (s *Service) Register(username, email, password, fullName string) (*board.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("username, email and password are required")
	}

	taken, err := s.repo.UsernameOrEmailTaken(username, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("username or email already registered: %w", board.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &board.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		IsActive:     true,
	}
	if err := s.repo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials, records the login time and issues an opaque
// session token.
func (s *Service) Login(ctx context.Context, username, password string) (*board.User, string, error) {
	user, err := s.repo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, board.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !user.IsActive {
		return nil, "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	if err := s.repo.Save(user); err != nil {
		return nil, "", err
	}

	token := uuid.New().String()
	if err := s.sessions.SetWithTTL(ctx, sessionKey(token), user.ID, sessionTTL); err != nil {
		return nil, "", fmt.Errorf("failed to store session: %w", err)
	}
	return user, token, nil
}

// Logout revokes a session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, sessionKey(token))
}

// Resolve returns the user ID a session token belongs to, or ErrNotFound.
// Tokens held by a deactivated account stop resolving immediately, without
// waiting for the TTL to expire.
func (s *Service) Resolve(ctx context.Context, token string) (string, error) {
	var userID string
	found, err := s.sessions.Get(ctx, sessionKey(token), &userID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", board.ErrNotFound
	}
	user, err := s.repo.FindByID(userID)
	if err != nil {
		return "", err
	}
	if !user.IsActive {
		return "", board.ErrNotFound
	}
	return userID, nil
}

// Get returns a user by ID.
func (s *Service) Get(id string) (*board.User, error) {
	return s.repo.FindByID(id)
}

// Search returns matching active users.
func (s *Service) Search(query string, limit int) ([]*board.User, error) {
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}
	return s.repo.Search(query, limit)
}

// UpdateProfile changes display fields on the actor's own account.
func (s *Service) UpdateProfile(userID string, fullName, avatarURL *string) (*board.User, error) {
	user, err := s.repo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if fullName != nil {
		user.FullName = *fullName
	}
	if avatarURL != nil {
		user.AvatarURL = *avatarURL
	}
	if err := s.repo.Save(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *Service) ChangePassword(userID, current, next string) error {
	user, err := s.repo.FindByID(userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	return s.repo.Save(user)
}

// Deactivate soft-deletes the account. Existing rows referencing the user
// stay intact; the active flag flips and outstanding session tokens stop
// resolving.
func (s *Service) Deactivate(userID string) error {
	user, err := s.repo.FindByID(userID)
	if err != nil {
		return err
	}
	user.IsActive = false
	return s.repo.Save(user)
}

func sessionKey(token string) string {
	return "session:" + token
}
