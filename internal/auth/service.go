package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-lms/meridian-lms/internal/principal"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// UserSource resolves login credentials against principal accounts.
type UserSource interface {
	GetByEmail(ctx context.Context, email string) (principal.User, error)
}

// Service wraps authentication business rules. Authorization and escalation
// live elsewhere; this service only proves who the caller is.
type Service struct {
	users UserSource
	repo  Repository
}

// NewService constructs a new Service.
func NewService(users UserSource, repo Repository) *Service {
	return &Service{users: users, repo: repo}
}

// Authenticate validates email/password credentials. Every failure collapses
// into the same invalid-credentials error so callers cannot probe accounts.
func (s *Service) Authenticate(ctx context.Context, email, password string) (principal.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return principal.User{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return principal.User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return principal.User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
