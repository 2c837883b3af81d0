package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

var tracer = otel.Tracer("clinic.internal.service.schedule")

// MaxRangeDays caps a single generation request.
const MaxRangeDays = 366

// HolidayLookup supplies the holidays falling in a date range.
type HolidayLookup interface {
	DatesBetween(ctx context.Context, start, end time.Time) (HolidaySet, error)
}

type Service struct {
	slots    repository.SlotRepository
	doctors  repository.DoctorRepository
	holidays HolidayLookup
	loc      *time.Location
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

func NewService(
	slots repository.SlotRepository,
	doctors repository.DoctorRepository,
	holidays HolidayLookup,
	loc *time.Location,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	return &Service{
		slots:    slots,
		doctors:  doctors,
		holidays: holidays,
		loc:      loc,
		metrics:  m,
		logger:   log,
	}
}

// CreateSchedule expands the requested dates into business days, cuts each day
// into slots and stores them all or none.
func (s *Service) CreateSchedule(ctx context.Context, req *model.CreateScheduleRequest, creatorID uuid.UUID) (*model.ScheduleResult, error) {
	ctx, span := tracer.Start(ctx, "schedule.CreateSchedule")
	defer span.End()
	span.SetAttributes(
		attribute.String("doctor_id", req.DoctorID.String()),
		attribute.String("date_mode", string(req.DateMode)),
	)

	count, err := s.createSchedule(ctx, req, creatorID)
	s.metrics.ScheduleRequests.WithLabelValues(metrics.ResultLabel(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "schedule generation failed")
		return nil, err
	}

	s.metrics.SlotsGenerated.Add(float64(count))
	span.SetAttributes(attribute.Int("slots", count))
	s.logger.WithContext(ctx).Info("schedule generated",
		"doctor_id", req.DoctorID.String(),
		"creator_id", creatorID.String(),
		"slots", count)
	return &model.ScheduleResult{Created: count}, nil
}

func (s *Service) createSchedule(ctx context.Context, req *model.CreateScheduleRequest, creatorID uuid.UUID) (int, error) {
	start, end, err := s.resolveRange(req)
	if err != nil {
		return 0, err
	}
	if end.Sub(start) > MaxRangeDays*24*time.Hour {
		return 0, apperrors.InvalidRange(fmt.Sprintf("date range cannot exceed %d days", MaxRangeDays), nil)
	}

	startClock, err := ParseClock(req.StartTime)
	if err != nil {
		return 0, err
	}
	endClock, err := ParseClock(req.EndTime)
	if err != nil {
		return 0, err
	}
	gen, err := NewGenerator(startClock, endClock, req.IntervalMinutes)
	if err != nil {
		return 0, err
	}
	workdays, err := ParseWeekdays(req.ActiveWeekdays)
	if err != nil {
		return 0, err
	}

	if _, err := s.doctors.Get(ctx, req.DoctorID); err != nil {
		return 0, err
	}

	holidays, err := s.holidays.DatesBetween(ctx, start, end)
	if err != nil {
		return 0, err
	}

	var slots []model.TimeSlot
	for day := range Expand(start, end, workdays, holidays) {
		slots = append(slots, gen.Slots(day)...)
	}
	if len(slots) == 0 {
		return 0, nil
	}

	count, err := s.slots.BulkInsert(ctx, req.DoctorID, creatorID, slots)
	if err != nil {
		return 0, fmt.Errorf("failed to store schedule: %w", err)
	}
	return count, nil
}

func (s *Service) resolveRange(req *model.CreateScheduleRequest) (time.Time, time.Time, error) {
	switch req.DateMode {
	case model.DateModeSingle:
		return ParseRange(req.Date, "", s.loc)
	case model.DateModeRange:
		if len(req.Dates) != 2 {
			return time.Time{}, time.Time{}, apperrors.InvalidRange("range mode requires a start and an end date", nil)
		}
		return ParseRange(req.Dates[0], req.Dates[1], s.loc)
	default:
		return time.Time{}, time.Time{}, apperrors.InvalidParameter(fmt.Sprintf("unknown date mode %q", req.DateMode), nil)
	}
}

// Available lists the doctor's free slots on a DD.MM.YYYY date.
func (s *Service) Available(ctx context.Context, doctorID uuid.UUID, date string) ([]model.AvailableSlot, error) {
	day, err := ParseDate(date, s.loc)
	if err != nil {
		return nil, err
	}

	slots, err := s.slots.ListAvailable(ctx, doctorID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list available slots: %w", err)
	}

	out := make([]model.AvailableSlot, 0, len(slots))
	for _, slot := range slots {
		out = append(out, model.NewAvailableSlot(slot))
	}
	return out, nil
}

func (s *Service) DoctorSpan(ctx context.Context, doctorID uuid.UUID) (*model.ScheduleSpan, error) {
	return s.slots.GetDoctorSpan(ctx, doctorID)
}

func (s *Service) ListSpans(ctx context.Context) ([]*model.ScheduleSpan, error) {
	return s.slots.ListDoctorSpans(ctx)
}
