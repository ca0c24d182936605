package roles

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-lms/meridian-lms/internal/platform/cache"
	"github.com/meridian-lms/meridian-lms/internal/rights"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

type stubRepo struct {
	defs map[string]Definition
}

func newStubRepo(defs ...Definition) *stubRepo {
	repo := &stubRepo{defs: make(map[string]Definition)}
	for _, d := range defs {
		repo.defs[d.Name] = d
	}
	return repo
}

func (s *stubRepo) List(_ context.Context) ([]Definition, error) {
	out := make([]Definition, 0, len(s.defs))
	for _, d := range s.defs {
		out = append(out, d)
	}
	return out, nil
}

func (s *stubRepo) ListByKind(ctx context.Context, kind shared.PrincipalKind) ([]Definition, error) {
	all, _ := s.List(ctx)
	out := all[:0]
	for _, d := range all {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *stubRepo) Get(_ context.Context, name string) (Definition, error) {
	d, ok := s.defs[name]
	if !ok {
		return Definition{}, shared.ErrNotFound
	}
	return d, nil
}

func (s *stubRepo) Create(_ context.Context, def Definition) (Definition, error) {
	if _, ok := s.defs[def.Name]; ok {
		return Definition{}, shared.ErrDuplicate
	}
	s.defs[def.Name] = def
	return def, nil
}

func (s *stubRepo) Update(_ context.Context, def Definition) (Definition, error) {
	if _, ok := s.defs[def.Name]; !ok {
		return Definition{}, shared.ErrNotFound
	}
	s.defs[def.Name] = def
	return def, nil
}

func (s *stubRepo) SetActive(_ context.Context, name string, active bool) error {
	d, ok := s.defs[name]
	if !ok {
		return shared.ErrNotFound
	}
	d.IsActive = active
	s.defs[name] = d
	return nil
}

type stubCatalog struct{}

func (stubCatalog) ActiveByID(_ context.Context) (map[string]rights.AccessRight, error) {
	out := make(map[string]rights.AccessRight)
	for _, entry := range rights.SeedCatalog() {
		out[entry.ID] = entry
	}
	return out, nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewService(repo, stubCatalog{}, cache.NewRefCache(client, time.Minute), slog.Default())
}

func TestCombineUnionsRights(t *testing.T) {
	svc := newTestService(t, newStubRepo(SeedDefinitions()...))

	set, err := svc.Combine(context.Background(), shared.KindStaff, RoleDepartmentAdmin, RoleInstructor)
	require.NoError(t, err)

	// Union with no duplicates even though both roles include content reads.
	ids := set.Identifiers()
	seen := make(map[string]int)
	for _, id := range ids {
		seen[id]++
	}
	assert.Equal(t, 1, seen[rights.RightContentRead])
	assert.Contains(t, ids, rights.RightAssessmentGrade)
	assert.Contains(t, ids, rights.RightEnrollmentManage)
}

func TestCombineOrderIndependent(t *testing.T) {
	svc := newTestService(t, newStubRepo(SeedDefinitions()...))
	ctx := context.Background()

	ab, err := svc.Combine(ctx, shared.KindStaff, RoleDepartmentAdmin, RoleInstructor)
	require.NoError(t, err)
	ba, err := svc.Combine(ctx, shared.KindStaff, RoleInstructor, RoleDepartmentAdmin)
	require.NoError(t, err)
	assert.Equal(t, ab.Identifiers(), ba.Identifiers())

	// The pairwise union equals the union of singleton combinations.
	a, err := svc.Combine(ctx, shared.KindStaff, RoleDepartmentAdmin)
	require.NoError(t, err)
	b, err := svc.Combine(ctx, shared.KindStaff, RoleInstructor)
	require.NoError(t, err)
	assert.Equal(t, ab.Identifiers(), a.Union(b).Identifiers())
}

func TestCombineIgnoresUnknownAndInactiveRoles(t *testing.T) {
	defs := SeedDefinitions()
	for i := range defs {
		if defs[i].Name == RoleReportViewer {
			defs[i].IsActive = false
		}
	}
	svc := newTestService(t, newStubRepo(defs...))

	set, err := svc.Combine(context.Background(), shared.KindStaff, "no-such-role", RoleReportViewer, RoleInstructor)
	require.NoError(t, err)
	assert.NotContains(t, set.Identifiers(), rights.RightReportsView)
	assert.Contains(t, set.Identifiers(), rights.RightAssessmentGrade)
}

func TestCombineScopesToKind(t *testing.T) {
	svc := newTestService(t, newStubRepo(SeedDefinitions()...))

	// An instructor role name contributes nothing when combined as a learner.
	set, err := svc.Combine(context.Background(), shared.KindLearner, RoleInstructor, RoleStudent)
	require.NoError(t, err)
	assert.NotContains(t, set.Identifiers(), rights.RightAssessmentGrade)
	assert.Contains(t, set.Identifiers(), rights.RightContentRead)
}

func TestValidateNames(t *testing.T) {
	svc := newTestService(t, newStubRepo(SeedDefinitions()...))
	ctx := context.Background()

	require.NoError(t, svc.ValidateNames(ctx, shared.KindStaff, []string{RoleInstructor, RoleDepartmentAdmin}))

	err := svc.ValidateNames(ctx, shared.KindStaff, nil)
	assert.ErrorIs(t, err, shared.ErrValidation)

	err = svc.ValidateNames(ctx, shared.KindStaff, []string{"no-such-role"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	err = svc.ValidateNames(ctx, shared.KindLearner, []string{RoleInstructor})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsUncatalogedRight(t *testing.T) {
	svc := newTestService(t, newStubRepo())
	_, err := svc.Create(context.Background(), Definition{
		Name:     "archivist",
		Kind:     shared.KindStaff,
		RightIDs: []string{"content:archive:restore"},
		IsActive: true,
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateKeepsKind(t *testing.T) {
	repo := newStubRepo(SeedDefinitions()...)
	svc := newTestService(t, repo)

	updated, err := svc.Update(context.Background(), Definition{
		Name:        RoleInstructor,
		Kind:        shared.KindLearner, // ignored
		DisplayName: "Lead Instructor",
		RightIDs:    []string{rights.RightContentManage},
		IsActive:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, shared.KindStaff, updated.Kind)
}

func TestUpdateAcceptsSeededWildcardRole(t *testing.T) {
	repo := newStubRepo(SeedDefinitions()...)
	svc := newTestService(t, repo)

	// content-author carries content:* which the seed catalog never lists as
	// a concrete entry; a description-only rewrite must still validate.
	current, err := svc.Get(context.Background(), RoleContentAuthor)
	require.NoError(t, err)

	current.Description = "Authors and maintains course content"
	updated, err := svc.Update(context.Background(), current)
	require.NoError(t, err)
	assert.Equal(t, "Authors and maintains course content", updated.Description)
	assert.Contains(t, updated.RightIDs, "content:*")
}

func TestCreateAcceptsDomainWildcard(t *testing.T) {
	svc := newTestService(t, newStubRepo())
	created, err := svc.Create(context.Background(), Definition{
		Name:     "enrollment-lead",
		Kind:     shared.KindStaff,
		RightIDs: []string{"enrollment:*"},
		IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"enrollment:*"}, created.RightIDs)
}
