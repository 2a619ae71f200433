package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/almacen-erp/almacen-erp/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	sessions *shared.SessionStore
}

// NewService constructs a new Service.
func NewService(repo Repository, sessions *shared.SessionStore) *Service {
	return &Service{repo: repo, sessions: sessions}
}

// Authenticate validates username/password credentials. It returns the same
// error for unknown users, inactive accounts and bad passwords so callers
// cannot probe for valid usernames.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (*User, string, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, "", err
	}
	token, err := s.sessions.Create(ctx, shared.Identity{UserID: user.ID, Role: user.Role})
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout revokes a session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}
