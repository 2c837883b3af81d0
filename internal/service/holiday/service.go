package holiday

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/schedule"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

const (
	MinYear = 2000
	MaxYear = 2100
)

type Service struct {
	repo    repository.HolidayRepository
	cache   *gocache.Cache
	loc     *time.Location
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(repo repository.HolidayRepository, loc *time.Location, ttl time.Duration, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		cache:   gocache.New(ttl, 2*ttl),
		loc:     loc,
		metrics: m,
		logger:  log,
	}
}

func cacheKey(year int) string {
	return "holidays:" + strconv.Itoa(year)
}

// DatesBetween returns the holiday set covering every year that [start, end)
// touches. Each year is loaded once and cached.
func (s *Service) DatesBetween(ctx context.Context, start, end time.Time) (schedule.HolidaySet, error) {
	set := schedule.NewHolidaySet()
	for _, year := range schedule.YearsBetween(start, end) {
		holidays, err := s.year(ctx, year)
		if err != nil {
			return nil, err
		}
		for _, h := range holidays {
			set.Add(h.Date)
		}
	}
	return set, nil
}

func (s *Service) year(ctx context.Context, year int) ([]*model.Holiday, error) {
	if cached, ok := s.cache.Get(cacheKey(year)); ok {
		s.metrics.HolidayCacheHits.WithLabelValues("hit").Inc()
		return cached.([]*model.Holiday), nil
	}
	s.metrics.HolidayCacheHits.WithLabelValues("miss").Inc()

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc)
	holidays, err := s.repo.ListBetween(ctx, from, from.AddDate(1, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays for %d: %w", year, err)
	}
	s.cache.SetDefault(cacheKey(year), holidays)
	return holidays, nil
}

// ListYear returns the holidays of one calendar year.
func (s *Service) ListYear(ctx context.Context, year int) ([]*model.Holiday, error) {
	if year < MinYear || year > MaxYear {
		return nil, apperrors.InvalidParameter(fmt.Sprintf("year must be between %d and %d", MinYear, MaxYear), nil)
	}
	return s.year(ctx, year)
}

func (s *Service) Create(ctx context.Context, req *model.CreateHolidayRequest) (*model.Holiday, error) {
	date, err := schedule.ParseDate(req.Date, s.loc)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.InvalidParameter("holiday name is required", nil)
	}

	holiday := &model.Holiday{Date: date, Name: name}
	if err := s.repo.Create(ctx, holiday); err != nil {
		return nil, fmt.Errorf("failed to create holiday: %w", err)
	}
	s.cache.Delete(cacheKey(date.Year()))

	s.logger.WithContext(ctx).Info("holiday created",
		"holiday_id", holiday.ID.String(),
		"date", date.Format(model.DateLayout))
	return holiday, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	holiday, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	s.cache.Delete(cacheKey(holiday.Date.Year()))

	s.logger.WithContext(ctx).Info("holiday deleted", "holiday_id", id.String())
	return nil
}
