package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-lms/meridian-lms/internal/shared"
)

type stubRepo struct {
	rows []DecisionRow
	got  TimelineFilters
}

func (s *stubRepo) Timeline(_ context.Context, f TimelineFilters) ([]DecisionRow, int64, error) {
	s.got = f
	return s.rows, int64(len(s.rows)), nil
}

func TestTimelineDefaultsPaging(t *testing.T) {
	repo := &stubRepo{rows: []DecisionRow{{ID: 1, UserID: 7, RequiredRight: "content:courses:manage", Decision: "grant", OccurredAt: time.Now()}}}
	svc := NewService(repo)

	rows, page, err := svc.Timeline(context.Background(), TimelineFilters{UserID: 7})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, repo.got.Page)
	assert.Equal(t, defaultPageSize, repo.got.PageSize)
	assert.Equal(t, 1, page.Total)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, _, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 5000})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, repo.got.PageSize)
}

func TestTimelineRejectsBadDecision(t *testing.T) {
	svc := NewService(&stubRepo{})

	_, _, err := svc.Timeline(context.Background(), TimelineFilters{Decision: "maybe"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
