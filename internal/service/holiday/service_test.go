package holiday_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/service/holiday"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// countingRepo counts ListBetween calls to observe the year cache.
type countingRepo struct {
	repository.HolidayRepository
	lists int
	err   error
}

func (r *countingRepo) ListBetween(ctx context.Context, from, to time.Time) ([]*model.Holiday, error) {
	r.lists++
	if r.err != nil {
		return nil, r.err
	}
	return r.HolidayRepository.ListBetween(ctx, from, to)
}

func newService(t *testing.T) (*holiday.Service, *countingRepo) {
	t.Helper()
	repo := &countingRepo{HolidayRepository: memory.NewStore().Holidays()}
	return holiday.NewService(repo, time.UTC, time.Minute, metrics.NewTestMetrics(), logger.Nop()), repo
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateAndListYear(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	h, err := svc.Create(ctx, &model.CreateHolidayRequest{Date: "09.05.2024", Name: " Victory Day "})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, h.ID)
	assert.Equal(t, "Victory Day", h.Name)

	_, err = svc.Create(ctx, &model.CreateHolidayRequest{Date: "01.01.2025", Name: "New Year"})
	require.NoError(t, err)

	list, err := svc.ListYear(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, date(2024, 5, 9), list[0].Date)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &model.CreateHolidayRequest{Date: "2024-05-09", Name: "x"})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRange))

	_, err = svc.Create(ctx, &model.CreateHolidayRequest{Date: "09.05.2024", Name: "   "})
	assert.True(t, apperrors.IsInvalidParameter(err))

	_, err = svc.Create(ctx, &model.CreateHolidayRequest{Date: "09.05.2024", Name: "Victory Day"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &model.CreateHolidayRequest{Date: "09.05.2024", Name: "Again"})
	assert.True(t, apperrors.IsInvalidParameter(err))
}

func TestListYear_Bounds(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.ListYear(context.Background(), 1999)
	assert.True(t, apperrors.IsInvalidParameter(err))
	_, err = svc.ListYear(context.Background(), 2101)
	assert.True(t, apperrors.IsInvalidParameter(err))
}

func TestDatesBetween_CachesPerYear(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &model.CreateHolidayRequest{Date: "31.12.2024", Name: "Eve"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &model.CreateHolidayRequest{Date: "01.01.2025", Name: "New Year"})
	require.NoError(t, err)

	set, err := svc.DatesBetween(ctx, date(2024, 12, 30), date(2025, 1, 3))
	require.NoError(t, err)
	assert.True(t, set.Contains(date(2024, 12, 31)))
	assert.True(t, set.Contains(date(2025, 1, 1)))
	assert.False(t, set.Contains(date(2024, 12, 30)))
	assert.Equal(t, 2, repo.lists)

	_, err = svc.DatesBetween(ctx, date(2024, 12, 30), date(2025, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, repo.lists, "second lookup should be served from cache")
}

func TestCreateInvalidatesCache(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	set, err := svc.DatesBetween(ctx, date(2024, 5, 1), date(2024, 5, 31))
	require.NoError(t, err)
	assert.False(t, set.Contains(date(2024, 5, 9)))

	created, err := svc.Create(ctx, &model.CreateHolidayRequest{Date: "09.05.2024", Name: "Victory Day"})
	require.NoError(t, err)

	set, err = svc.DatesBetween(ctx, date(2024, 5, 1), date(2024, 5, 31))
	require.NoError(t, err)
	assert.True(t, set.Contains(date(2024, 5, 9)))
	assert.Equal(t, 2, repo.lists)

	require.NoError(t, svc.Delete(ctx, created.ID))
	set, err = svc.DatesBetween(ctx, date(2024, 5, 1), date(2024, 5, 31))
	require.NoError(t, err)
	assert.False(t, set.Contains(date(2024, 5, 9)))
}

func TestDelete_NotFound(t *testing.T) {
	svc, _ := newService(t)
	err := svc.Delete(context.Background(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDatesBetween_StoreError(t *testing.T) {
	svc, repo := newService(t)
	repo.err = apperrors.StoreUnavailable(errors.New("connection refused"))

	_, err := svc.DatesBetween(context.Background(), date(2024, 5, 1), date(2024, 5, 2))
	assert.True(t, apperrors.IsRetryable(err))
}
