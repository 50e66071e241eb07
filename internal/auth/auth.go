// Package auth implements credential hashing, verification and
// server-side session management.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bachat/internal/core"
	"bachat/internal/storage"
)

// Service wraps the repository with authentication operations.
type Service struct {
	repo       *storage.SQLiteRepository
	sessionTTL time.Duration
}

func NewService(repo *storage.SQLiteRepository, sessionTTL time.Duration) *Service {
	return &Service{
		repo:       repo,
		sessionTTL: sessionTTL,
	}
}

// Register creates an account with a bcrypt-hashed password. Empty
// username or password is rejected with core.ErrInvalidInput; a duplicate
// username surfaces as core.ErrUsernameTaken from the store's uniqueness
// constraint.
func (s *Service) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return core.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.repo.CreateUser(ctx, username, string(hash)); err != nil {
		return err
	}
	return nil
}

// Authenticate verifies username and password, returning the user id.
// Unknown user and wrong password fail identically with
// core.ErrInvalidCredentials so account existence is not leaked.
func (s *Service) Authenticate(ctx context.Context, username, password string) (int64, error) {
	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return 0, core.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return 0, core.ErrInvalidCredentials
	}

	return user.ID, nil
}

// StartSession issues a new session token for the user. The session row
// holds only the user id; user fields are re-fetched per request.
func (s *Service) StartSession(ctx context.Context, userID int64) (storage.Session, error) {
	now := time.Now()
	sess := storage.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return storage.Session{}, fmt.Errorf("create session: %w", err)
	}

	slog.InfoContext(ctx, "Session started", "user_id", userID, "expires_at", sess.ExpiresAt)
	return sess, nil
}

// EndSession invalidates a session token. Unknown tokens are a no-op.
func (s *Service) EndSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.repo.DeleteSession(ctx, token)
}

// ResolveIdentity maps a session token to the current user, re-fetching
// the user row so budget changes are never stale. Missing, unknown or
// expired sessions resolve to core.ErrNotFound; expired rows are deleted
// lazily.
func (s *Service) ResolveIdentity(ctx context.Context, token string) (*core.User, error) {
	if token == "" {
		return nil, core.ErrNotFound
	}

	sess, err := s.repo.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}

	if time.Now().After(sess.ExpiresAt) {
		if err := s.repo.DeleteSession(ctx, token); err != nil {
			slog.WarnContext(ctx, "Failed to delete expired session", "error", err)
		}
		return nil, core.ErrNotFound
	}

	user, err := s.repo.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("fetch session user: %w", err)
	}
	return user, nil
}
