package rights

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
	rights    map[string]AccessRight
	listCalls int
}

func newStubRepo(entries ...AccessRight) *stubRepo {
	repo := &stubRepo{rights: make(map[string]AccessRight)}
	for _, e := range entries {
		repo.rights[e.ID] = e
	}
	return repo
}

func (s *stubRepo) List(_ context.Context) ([]AccessRight, error) {
	s.listCalls++
	out := make([]AccessRight, 0, len(s.rights))
	for _, r := range s.rights {
		out = append(out, r)
	}
	return out, nil
}

func (s *stubRepo) Get(_ context.Context, id string) (AccessRight, error) {
	r, ok := s.rights[id]
	if !ok {
		return AccessRight{}, shared.ErrNotFound
	}
	return r, nil
}

func (s *stubRepo) Create(_ context.Context, right AccessRight) (AccessRight, error) {
	if _, ok := s.rights[right.ID]; ok {
		return AccessRight{}, shared.ErrDuplicate
	}
	s.rights[right.ID] = right
	return right, nil
}

func (s *stubRepo) Update(_ context.Context, right AccessRight) (AccessRight, error) {
	if _, ok := s.rights[right.ID]; !ok {
		return AccessRight{}, shared.ErrNotFound
	}
	s.rights[right.ID] = right
	return right, nil
}

func (s *stubRepo) SetActive(_ context.Context, id string, active bool) error {
	r, ok := s.rights[id]
	if !ok {
		return shared.ErrNotFound
	}
	r.IsActive = active
	s.rights[id] = r
	return nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewService(repo, cache.NewRefCache(client, time.Minute), slog.Default())
}

func TestCreateNormalizesIdentifier(t *testing.T) {
	svc := newTestService(t, newStubRepo())
	created, err := svc.Create(context.Background(), AccessRight{
		ID:          "Content:Courses:Manage",
		Description: "manage courses",
		IsActive:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "content:courses:manage", created.ID)
}

func TestCreateRejectsUnknownDomain(t *testing.T) {
	svc := newTestService(t, newStubRepo())
	_, err := svc.Create(context.Background(), AccessRight{ID: "warehouse:pallets:move", IsActive: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsSensitiveWithoutCategory(t *testing.T) {
	svc := newTestService(t, newStubRepo())
	_, err := svc.Create(context.Background(), AccessRight{ID: "users:accounts:manage", Sensitive: true, IsActive: true})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCatalogIsCached(t *testing.T) {
	repo := newStubRepo(SeedCatalog()...)
	svc := newTestService(t, repo)

	_, err := svc.Catalog(context.Background())
	require.NoError(t, err)
	_, err = svc.Catalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
}

func TestCreateInvalidatesCatalogCache(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	_, err := svc.Catalog(context.Background())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), AccessRight{ID: "content:courses:read", IsActive: true})
	require.NoError(t, err)

	catalog, err := svc.Catalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, catalog, 1)
	assert.Equal(t, 2, repo.listCalls)
}

func TestSensitiveRights(t *testing.T) {
	repo := newStubRepo(SeedCatalog()...)
	svc := newTestService(t, repo)

	set, err := svc.SensitiveRights(context.Background(), SensitivityPII)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{RightUsersManage, RightReportsUnmasked}, set.Identifiers())
}

func TestSeedIsIdempotent(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	require.NoError(t, svc.Seed(context.Background()))
	require.NoError(t, svc.Seed(context.Background()))

	catalog, err := svc.Catalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, catalog, len(SeedCatalog()))
}
