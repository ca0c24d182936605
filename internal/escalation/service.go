package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-lms/meridian-lms/internal/directory"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

const minSecretLength = 12

// RoleValidator checks role names against the role registry for a kind.
type RoleValidator interface {
	ValidateNames(ctx context.Context, kind shared.PrincipalKind, names []string) error
}

// DepartmentStore is the slice of the directory the escalation service needs.
type DepartmentStore interface {
	Master(ctx context.Context) (directory.Department, error)
}

// Service manages privilege escalation. Escalation is a second credential
// check layered on top of the login session: the secret is distinct from the
// login password, and the elevated window expires on its own clock.
type Service struct {
	repo        Repository
	sessions    *SessionStore
	roles       RoleValidator
	departments DepartmentStore
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(repo Repository, sessions *SessionStore, roles RoleValidator, departments DepartmentStore, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		sessions:    sessions,
		roles:       roles,
		departments: departments,
		logger:      logger,
		now:         time.Now,
	}
}

// SetSecret installs or rotates a principal's escalation secret. The timeout
// is clamped to the allowed window; zero selects the default.
func (s *Service) SetSecret(ctx context.Context, userID int64, secret string, timeoutMinutes int) error {
	verr := shared.NewValidationError()
	if len(secret) < minSecretLength {
		verr.Add("secret", fmt.Sprintf("must be at least %d characters", minSecretLength))
	}
	if timeoutMinutes == 0 {
		timeoutMinutes = DefaultTimeoutMinutes
	}
	if timeoutMinutes < MinTimeoutMinutes || timeoutMinutes > MaxTimeoutMinutes {
		verr.Add("timeout_minutes", fmt.Sprintf("must be between %d and %d", MinTimeoutMinutes, MaxTimeoutMinutes))
	}
	if verr.HasErrors() {
		return verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("escalation: hash secret: %w", err)
	}
	rec := &Record{
		UserID:         userID,
		SecretHash:     string(hash),
		TimeoutMinutes: timeoutMinutes,
		IsActive:       true,
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return err
	}
	s.logger.Info("escalation secret set", slog.Int64("user_id", userID))
	return nil
}

// Escalate verifies the escalation secret and opens an elevated session.
// Principals without the global-admin kind are refused before any secret
// comparison takes place. Escalating while already elevated simply opens a
// fresh window.
func (s *Service) Escalate(ctx context.Context, userID int64, kinds []shared.PrincipalKind, secret string) (Session, error) {
	if !hasGlobalAdmin(kinds) {
		return Session{}, shared.ErrEscalationDenied
	}

	rec, err := s.repo.Get(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return Session{}, shared.ErrEscalationDenied
	}
	if err != nil {
		return Session{}, err
	}
	if !rec.IsActive {
		return Session{}, shared.ErrEscalationDenied
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.SecretHash), []byte(secret)); err != nil {
		s.logger.Warn("escalation secret mismatch", slog.Int64("user_id", userID))
		return Session{}, shared.ErrEscalationDenied
	}

	sess := Session{
		Token:       newToken(),
		UserID:      userID,
		EscalatedAt: s.now(),
		Timeout:     rec.Timeout(),
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return Session{}, err
	}
	if err := s.repo.TouchEscalated(ctx, userID); err != nil {
		s.logger.Error("escalation timestamp update failed", slog.Any("error", err))
	}
	s.logger.Info("privilege escalated",
		slog.Int64("user_id", userID),
		slog.Time("expires_at", sess.ExpiresAt()))
	return sess, nil
}

// IsEscalated reports whether the token names a live elevated session. An
// expired token is swept from the store on the way out.
func (s *Service) IsEscalated(ctx context.Context, token string) (Session, bool, error) {
	sess, ok, err := s.sessions.Get(ctx, token)
	if err != nil || !ok {
		return Session{}, false, err
	}
	if !sess.ValidAt(s.now()) {
		if err := s.sessions.Delete(ctx, token); err != nil {
			s.logger.Error("expired escalation cleanup failed", slog.Any("error", err))
		}
		return Session{}, false, nil
	}
	return sess, true, nil
}

// DeEscalate drops the elevated session immediately.
func (s *Service) DeEscalate(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Record returns a principal's escalation record, memberships included.
func (s *Service) Record(ctx context.Context, userID int64) (*Record, error) {
	return s.repo.Get(ctx, userID)
}

// AssignAdminMembership grants admin roles scoped to the master department.
// Any other target department breaks the model and is refused.
func (s *Service) AssignAdminMembership(ctx context.Context, kinds []shared.PrincipalKind, m AdminMembership) error {
	if !hasGlobalAdmin(kinds) {
		return shared.NewValidationError(shared.FieldError{Field: "user_id", Message: "principal does not hold the global-admin kind"})
	}
	master, err := s.departments.Master(ctx)
	if err != nil {
		return err
	}
	if m.DepartmentID != master.ID {
		return fmt.Errorf("%w: admin membership must target the master department", shared.ErrIntegrity)
	}
	if err := s.roles.ValidateNames(ctx, shared.KindGlobalAdmin, m.Roles); err != nil {
		return err
	}
	if err := s.repo.UpsertMembership(ctx, m); err != nil {
		return err
	}
	s.logger.Info("admin membership assigned",
		slog.Int64("user_id", m.UserID),
		slog.Int64("department_id", m.DepartmentID))
	return nil
}

// RevokeAdminMembership deactivates an admin membership.
func (s *Service) RevokeAdminMembership(ctx context.Context, userID, departmentID int64) error {
	return s.repo.DeactivateMembership(ctx, userID, departmentID)
}

func hasGlobalAdmin(kinds []shared.PrincipalKind) bool {
	for _, k := range kinds {
		if k == shared.KindGlobalAdmin {
			return true
		}
	}
	return false
}
