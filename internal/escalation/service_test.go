package escalation

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-lms/meridian-lms/internal/directory"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

type stubRepo struct {
	records     map[int64]*Record
	memberships map[int64][]AdminMembership
	getCalls    int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		records:     make(map[int64]*Record),
		memberships: make(map[int64][]AdminMembership),
	}
}

func (s *stubRepo) Get(_ context.Context, userID int64) (*Record, error) {
	s.getCalls++
	rec, ok := s.records[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *rec
	cp.Memberships = s.memberships[userID]
	return &cp, nil
}

func (s *stubRepo) Upsert(_ context.Context, rec *Record) error {
	cp := *rec
	s.records[rec.UserID] = &cp
	return nil
}

func (s *stubRepo) TouchEscalated(_ context.Context, userID int64) error {
	rec, ok := s.records[userID]
	if !ok {
		return shared.ErrNotFound
	}
	now := time.Now()
	rec.LastEscalatedAt = &now
	return nil
}

func (s *stubRepo) UpsertMembership(_ context.Context, m AdminMembership) error {
	s.memberships[m.UserID] = append(s.memberships[m.UserID], m)
	return nil
}

func (s *stubRepo) DeactivateMembership(_ context.Context, userID, departmentID int64) error {
	for i, m := range s.memberships[userID] {
		if m.DepartmentID == departmentID {
			s.memberships[userID][i].IsActive = false
			return nil
		}
	}
	return shared.ErrNotFound
}

type stubRoles struct{ invalid map[string]bool }

func (s *stubRoles) ValidateNames(_ context.Context, _ shared.PrincipalKind, names []string) error {
	for _, n := range names {
		if s.invalid[n] {
			return shared.NewValidationError(shared.FieldError{Field: "roles", Message: "unknown role " + n})
		}
	}
	return nil
}

type stubDepartments struct{ master directory.Department }

func (s *stubDepartments) Master(_ context.Context) (directory.Department, error) {
	return s.master, nil
}

func newTestService(t *testing.T) (*Service, *stubRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := newStubRepo()
	svc := NewService(
		repo,
		NewSessionStore(client),
		&stubRoles{invalid: map[string]bool{"bogus": true}},
		&stubDepartments{master: directory.Department{ID: 99, Code: "master", IsMaster: true, IsActive: true}},
		slog.Default(),
	)
	return svc, repo
}

func seedRecord(t *testing.T, repo *stubRepo, userID int64, secret string, timeoutMinutes int) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	require.NoError(t, err)
	repo.records[userID] = &Record{
		UserID:         userID,
		SecretHash:     string(hash),
		TimeoutMinutes: timeoutMinutes,
		IsActive:       true,
	}
}

var adminKinds = []shared.PrincipalKind{shared.KindStaff, shared.KindGlobalAdmin}

func TestEscalateRequiresGlobalAdminKind(t *testing.T) {
	svc, repo := newTestService(t)
	seedRecord(t, repo, 1, "super-secret-pass", 15)

	_, err := svc.Escalate(context.Background(), 1, []shared.PrincipalKind{shared.KindStaff}, "super-secret-pass")
	assert.ErrorIs(t, err, shared.ErrEscalationDenied)
	assert.Zero(t, repo.getCalls, "record must not be consulted for non-admin principals")
}

func TestEscalateWrongSecret(t *testing.T) {
	svc, repo := newTestService(t)
	seedRecord(t, repo, 1, "super-secret-pass", 15)

	_, err := svc.Escalate(context.Background(), 1, adminKinds, "not-the-secret")
	assert.ErrorIs(t, err, shared.ErrEscalationDenied)
}

func TestEscalateNoRecord(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Escalate(context.Background(), 7, adminKinds, "whatever-secret")
	assert.ErrorIs(t, err, shared.ErrEscalationDenied)
	assert.NotErrorIs(t, err, shared.ErrNotFound, "missing record must not be distinguishable")
}

func TestEscalateInactiveRecord(t *testing.T) {
	svc, repo := newTestService(t)
	seedRecord(t, repo, 1, "super-secret-pass", 15)
	repo.records[1].IsActive = false

	_, err := svc.Escalate(context.Background(), 1, adminKinds, "super-secret-pass")
	assert.ErrorIs(t, err, shared.ErrEscalationDenied)
}

func TestEscalateOpensSession(t *testing.T) {
	svc, repo := newTestService(t)
	seedRecord(t, repo, 1, "super-secret-pass", 30)

	sess, err := svc.Escalate(context.Background(), 1, adminKinds, "super-secret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, int64(1), sess.UserID)
	assert.Equal(t, 30*time.Minute, sess.Timeout)
	require.NotNil(t, repo.records[1].LastEscalatedAt)

	got, ok, err := svc.IsEscalated(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sess.Token, got.Token)
}

func TestSessionExpiryIsComputed(t *testing.T) {
	svc, repo := newTestService(t)
	seedRecord(t, repo, 1, "super-secret-pass", 15)

	base := time.Now()
	svc.now = func() time.Time { return base }
	sess, err := svc.Escalate(context.Background(), 1, adminKinds, "super-secret-pass")
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(15*time.Minute - time.Second) }
	_, ok, err := svc.IsEscalated(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.True(t, ok, "still inside the window")

	svc.now = func() time.Time { return base.Add(15 * time.Minute) }
	_, ok, err = svc.IsEscalated(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.False(t, ok, "window closes exactly at the timeout")

	// The expired token was swept; a later probe stays false.
	_, ok, err = svc.IsEscalated(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReEscalationOpensFreshWindow(t *testing.T) {
	svc, repo := newTestService(t)
	seedRecord(t, repo, 1, "super-secret-pass", 15)

	base := time.Now()
	svc.now = func() time.Time { return base }
	first, err := svc.Escalate(context.Background(), 1, adminKinds, "super-secret-pass")
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(10 * time.Minute) }
	second, err := svc.Escalate(context.Background(), 1, adminKinds, "super-secret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	svc.now = func() time.Time { return base.Add(20 * time.Minute) }
	_, ok, err := svc.IsEscalated(context.Background(), second.Token)
	require.NoError(t, err)
	assert.True(t, ok, "refreshed window extends past the original expiry")
}

func TestDeEscalate(t *testing.T) {
	svc, repo := newTestService(t)
	seedRecord(t, repo, 1, "super-secret-pass", 15)

	sess, err := svc.Escalate(context.Background(), 1, adminKinds, "super-secret-pass")
	require.NoError(t, err)

	require.NoError(t, svc.DeEscalate(context.Background(), sess.Token))
	_, ok, err := svc.IsEscalated(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetSecretValidation(t *testing.T) {
	svc, repo := newTestService(t)

	err := svc.SetSecret(context.Background(), 1, "short", 15)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)

	err = svc.SetSecret(context.Background(), 1, "long-enough-secret", 4)
	require.ErrorAs(t, err, &verr)
	err = svc.SetSecret(context.Background(), 1, "long-enough-secret", 61)
	require.ErrorAs(t, err, &verr)

	// Zero selects the default timeout.
	require.NoError(t, svc.SetSecret(context.Background(), 1, "long-enough-secret", 0))
	assert.Equal(t, DefaultTimeoutMinutes, repo.records[1].TimeoutMinutes)
	assert.NotEqual(t, "long-enough-secret", repo.records[1].SecretHash)
}

func TestAssignAdminMembershipMasterOnly(t *testing.T) {
	svc, repo := newTestService(t)

	err := svc.AssignAdminMembership(context.Background(), adminKinds, AdminMembership{
		UserID: 1, DepartmentID: 2, Roles: []string{"global-admin"},
	})
	assert.ErrorIs(t, err, shared.ErrIntegrity)
	assert.Empty(t, repo.memberships[1])

	require.NoError(t, svc.AssignAdminMembership(context.Background(), adminKinds, AdminMembership{
		UserID: 1, DepartmentID: 99, Roles: []string{"global-admin"}, IsPrimary: true,
	}))
	require.Len(t, repo.memberships[1], 1)
}

func TestAssignAdminMembershipChecks(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.AssignAdminMembership(context.Background(), []shared.PrincipalKind{shared.KindStaff}, AdminMembership{
		UserID: 1, DepartmentID: 99, Roles: []string{"global-admin"},
	})
	assert.ErrorIs(t, err, shared.ErrValidation)

	err = svc.AssignAdminMembership(context.Background(), adminKinds, AdminMembership{
		UserID: 1, DepartmentID: 99, Roles: []string{"bogus"},
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordTimeoutClamp(t *testing.T) {
	assert.Equal(t, 15*time.Minute, Record{}.Timeout())
	assert.Equal(t, 15*time.Minute, Record{TimeoutMinutes: 90}.Timeout())
	assert.Equal(t, 5*time.Minute, Record{TimeoutMinutes: 5}.Timeout())
	assert.Equal(t, time.Hour, Record{TimeoutMinutes: 60}.Timeout())
}

func TestActiveMasterRoles(t *testing.T) {
	rec := Record{Memberships: []AdminMembership{
		{DepartmentID: 99, Roles: []string{"global-admin"}, IsActive: true},
		{DepartmentID: 99, Roles: []string{"report-viewer"}, IsActive: false},
	}}
	assert.Equal(t, []string{"global-admin"}, rec.ActiveMasterRoles())
}
