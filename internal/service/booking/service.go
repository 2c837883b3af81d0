package booking

import (
	"context"
	"fmt"
	"strings"
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
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

var tracer = otel.Tracer("clinic.internal.service.booking")

const calendarTimeLayout = "2006-01-02 15:04"

type Service struct {
	visits  repository.VisitRepository
	loc     *time.Location
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(visits repository.VisitRepository, loc *time.Location, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		visits:  visits,
		loc:     loc,
		metrics: m,
		logger:  log,
	}
}

// Book claims a free slot for a patient. Of any number of concurrent calls
// for the same slot exactly one succeeds; the rest get SLOT_ALREADY_BOOKED.
func (s *Service) Book(ctx context.Context, req *model.CreateVisitRequest, creatorID uuid.UUID) (*model.BookingResult, error) {
	ctx, span := tracer.Start(ctx, "booking.Book")
	defer span.End()
	span.SetAttributes(
		attribute.String("slot_id", req.SlotID.String()),
		attribute.String("doctor_id", req.DoctorID.String()),
	)

	bookingReq, err := s.toBookingRequest(req, creatorID)
	if err != nil {
		s.metrics.BookingAttempts.WithLabelValues(metrics.ResultInvalid).Inc()
		return nil, err
	}

	started := time.Now()
	result, err := s.visits.Book(ctx, bookingReq)
	s.metrics.BookingLatency.Observe(time.Since(started).Seconds())
	s.metrics.BookingAttempts.WithLabelValues(metrics.ResultLabel(err)).Inc()

	log := s.logger.WithContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "booking failed")
		if apperrors.IsRetryable(err) {
			log.Warn("booking store unavailable", "slot_id", req.SlotID.String(), "error", err.Error())
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("visit_id", result.Visit.ID.String()))
	log.Info("visit booked",
		"visit_id", result.Visit.ID.String(),
		"slot_id", result.Slot.ID.String(),
		"patient_id", result.Patient.ID.String(),
		"creator_id", creatorID.String())
	return result, nil
}

func (s *Service) toBookingRequest(req *model.CreateVisitRequest, creatorID uuid.UUID) (*model.BookingRequest, error) {
	if req.SlotID == uuid.Nil {
		return nil, apperrors.InvalidParameter("slot_id is required", nil)
	}
	if req.DoctorID == uuid.Nil {
		return nil, apperrors.InvalidParameter("doctor_id is required", nil)
	}
	if !req.FinancingSource.Valid() {
		return nil, apperrors.InvalidParameter(fmt.Sprintf("unknown financing source %q", req.FinancingSource), nil)
	}

	info := model.PatientInfo{
		LastName:   strings.TrimSpace(req.LastName),
		FirstName:  strings.TrimSpace(req.FirstName),
		MiddleName: strings.TrimSpace(req.MiddleName),
		Mobile:     strings.TrimSpace(req.Mobile),
	}
	if req.PatientID == nil {
		if info.LastName == "" || info.FirstName == "" {
			return nil, apperrors.InvalidParameter("patient last and first name are required", nil)
		}
		if !validator.IsMobile(info.Mobile) {
			return nil, apperrors.InvalidParameter("patient mobile number is invalid", nil)
		}
	}

	var comment *string
	if req.Comment != nil {
		if c := strings.TrimSpace(*req.Comment); c != "" {
			comment = &c
		}
	}

	return &model.BookingRequest{
		SlotID:          req.SlotID,
		DoctorID:        req.DoctorID,
		PatientID:       req.PatientID,
		Patient:         info,
		FinancingSource: req.FinancingSource,
		Comment:         comment,
		CreatorID:       creatorID,
	}, nil
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*model.VisitDetail, error) {
	return s.visits.Get(ctx, id)
}

// ListCalendar renders the visits whose slot starts in [from, to) as
// calendar events.
func (s *Service) ListCalendar(ctx context.Context, from, to time.Time) ([]model.CalendarEvent, error) {
	if !from.Before(to) {
		return nil, apperrors.InvalidRange("date_start must be before date_end", nil)
	}

	visits, err := s.visits.ListBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}

	events := make([]model.CalendarEvent, 0, len(visits))
	for _, v := range visits {
		events = append(events, s.calendarEvent(v))
	}
	return events, nil
}

func (s *Service) calendarEvent(v *model.VisitDetail) model.CalendarEvent {
	color := v.DoctorColor
	if color == "" {
		color = model.DefaultDoctorColor
	}
	return model.CalendarEvent{
		ID:              v.ID,
		Title:           fmt.Sprintf("Patient: %s  Doctor: %s", v.PatientName(), v.DoctorShortName()),
		Start:           v.StartTime.In(s.loc).Format(calendarTimeLayout),
		End:             v.EndTime.In(s.loc).Format(calendarTimeLayout),
		BackgroundColor: color,
		BorderColor:     color,
	}
}
