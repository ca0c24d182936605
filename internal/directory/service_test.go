package directory

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
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

type stubRepo struct {
	depts  map[int64]Department
	nextID int64
}

func newStubRepo(depts ...Department) *stubRepo {
	repo := &stubRepo{depts: make(map[int64]Department), nextID: 1}
	for _, d := range depts {
		repo.depts[d.ID] = d
		if d.ID >= repo.nextID {
			repo.nextID = d.ID + 1
		}
	}
	return repo
}

func (s *stubRepo) List(_ context.Context) ([]Department, error) {
	out := make([]Department, 0, len(s.depts))
	for _, d := range s.depts {
		out = append(out, d)
	}
	return out, nil
}

func (s *stubRepo) Get(_ context.Context, id int64) (Department, error) {
	d, ok := s.depts[id]
	if !ok {
		return Department{}, shared.ErrNotFound
	}
	return d, nil
}

func (s *stubRepo) GetMaster(_ context.Context) (Department, error) {
	for _, d := range s.depts {
		if d.IsMaster {
			return d, nil
		}
	}
	return Department{}, shared.ErrNotFound
}

func (s *stubRepo) Create(_ context.Context, dept Department) (Department, error) {
	dept.ID = s.nextID
	s.nextID++
	s.depts[dept.ID] = dept
	return dept, nil
}

func (s *stubRepo) Update(_ context.Context, dept Department) (Department, error) {
	current, ok := s.depts[dept.ID]
	if !ok {
		return Department{}, shared.ErrNotFound
	}
	current.Name = dept.Name
	current.Code = dept.Code
	current.ParentID = dept.ParentID
	s.depts[dept.ID] = current
	return current, nil
}

func (s *stubRepo) SetActive(_ context.Context, id int64, active bool) error {
	d, ok := s.depts[id]
	if !ok {
		return shared.ErrNotFound
	}
	d.IsActive = active
	s.depts[id] = d
	return nil
}

func ptr(v int64) *int64 { return &v }

// Root(1) -> IT(2) -> DevTeam(3), Root(1) -> HR(4), plus master(99).
func sampleTree() []Department {
	return []Department{
		{ID: 1, Name: "Root", Code: "root", IsActive: true},
		{ID: 2, Name: "IT", Code: "it", ParentID: ptr(1), IsActive: true},
		{ID: 3, Name: "DevTeam", Code: "dev", ParentID: ptr(2), IsActive: true},
		{ID: 4, Name: "HR", Code: "hr", ParentID: ptr(1), IsActive: true},
		{ID: 99, Name: "Platform", Code: "platform", IsMaster: true, IsActive: true},
	}
}

func newTestService(t *testing.T, depts ...Department) (*Service, *stubRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := newStubRepo(depts...)
	return NewService(repo, cache.NewRefCache(client, time.Minute), slog.Default()), repo
}

func TestDepartmentAndSubdepartments(t *testing.T) {
	svc, _ := newTestService(t, sampleTree()...)
	ctx := context.Background()

	got, err := svc.DepartmentAndSubdepartments(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, got)

	got, err = svc.DepartmentAndSubdepartments(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, got)

	got, err = svc.DepartmentAndSubdepartments(ctx, 404)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAncestorChainLeafToRoot(t *testing.T) {
	svc, _ := newTestService(t, sampleTree()...)

	chain, err := svc.AncestorChain(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, int64(3), chain[0].ID)
	assert.Equal(t, int64(2), chain[1].ID)
	assert.Equal(t, int64(1), chain[2].ID)
}

func TestRootOf(t *testing.T) {
	svc, _ := newTestService(t, sampleTree()...)
	ctx := context.Background()

	root, err := svc.RootOf(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), root.ID)

	root, err = svc.RootOf(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), root.ID)

	_, err = svc.RootOf(ctx, 404)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAncestorChainDetectsCycle(t *testing.T) {
	svc, _ := newTestService(t,
		Department{ID: 1, Name: "A", Code: "a", ParentID: ptr(2), IsActive: true},
		Department{ID: 2, Name: "B", Code: "b", ParentID: ptr(1), IsActive: true},
	)

	_, err := svc.AncestorChain(context.Background(), 1)
	assert.ErrorIs(t, err, shared.ErrIntegrity)
}

func TestDescendantsTolerateCycle(t *testing.T) {
	svc, _ := newTestService(t,
		Department{ID: 1, Name: "A", Code: "a", ParentID: ptr(2), IsActive: true},
		Department{ID: 2, Name: "B", Code: "b", ParentID: ptr(1), IsActive: true},
	)

	// The visited set bounds the walk; both nodes appear exactly once.
	got, err := svc.DepartmentAndSubdepartments(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, got)
}

func TestDepartmentIDsForQuery(t *testing.T) {
	svc, _ := newTestService(t, sampleTree()...)
	ctx := context.Background()

	got, err := svc.DepartmentIDsForQuery(ctx, []int64{1})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, got)

	got, err = svc.DepartmentIDsForQuery(ctx, []int64{3})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, got)

	// Superset of the input and idempotent under re-application.
	first, err := svc.DepartmentIDsForQuery(ctx, []int64{2, 4})
	require.NoError(t, err)
	assert.Subset(t, first, []int64{2, 4})
	again, err := svc.DepartmentIDsForQuery(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestHasHierarchicalAccess(t *testing.T) {
	svc, _ := newTestService(t, sampleTree()...)
	ctx := context.Background()

	// Ancestor reaches descendant.
	ok, err := svc.HasHierarchicalAccess(ctx, []int64{1}, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	// Never the other way around, and never to siblings.
	ok, err = svc.HasHierarchicalAccess(ctx, []int64{3}, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = svc.HasHierarchicalAccess(ctx, []int64{2}, 4)
	require.NoError(t, err)
	assert.False(t, ok)

	// Direct membership.
	ok, err = svc.HasHierarchicalAccess(ctx, []int64{3}, 3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateRefusesCycle(t *testing.T) {
	svc, _ := newTestService(t, sampleTree()...)

	_, err := svc.Update(context.Background(), Department{ID: 1, Name: "Root", Code: "root", ParentID: ptr(3)})
	assert.ErrorIs(t, err, shared.ErrIntegrity)
}

func TestCreateSecondMasterRefused(t *testing.T) {
	svc, _ := newTestService(t, sampleTree()...)

	_, err := svc.Create(context.Background(), Department{Name: "Shadow", Code: "shadow", IsMaster: true, IsActive: true})
	assert.ErrorIs(t, err, shared.ErrIntegrity)
}

func TestDeactivateMasterRefused(t *testing.T) {
	svc, _ := newTestService(t, sampleTree()...)

	err := svc.Deactivate(context.Background(), 99)
	assert.ErrorIs(t, err, shared.ErrIntegrity)
}
