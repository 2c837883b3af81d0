// Package notify tells doctors about visits booked into their schedule.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type DoctorDirectory interface {
	GetContact(ctx context.Context, id uuid.UUID) (*model.DoctorContact, error)
}

type VisitReader interface {
	Get(ctx context.Context, id uuid.UUID) (*model.VisitDetail, error)
}

type Subscriber struct {
	broker  messaging.Broker
	channel string
	doctors DoctorDirectory
	visits  VisitReader
	mailer  email.Service
	loc     *time.Location
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewSubscriber(
	broker messaging.Broker,
	channel string,
	doctors DoctorDirectory,
	visits VisitReader,
	mailer email.Service,
	loc *time.Location,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Subscriber {
	return &Subscriber{
		broker:  broker,
		channel: channel,
		doctors: doctors,
		visits:  visits,
		mailer:  mailer,
		loc:     loc,
		logger:  logger.Named("notify"),
		metrics: m,
	}
}

// Run consumes the channel until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	messages, err := s.broker.Subscribe(ctx, s.channel)
	if err != nil {
		return err
	}
	s.logger.Info("listening for booking events", zap.String("channel", s.channel))

	for msg := range messages {
		if err := s.Handle(ctx, msg); err != nil {
			s.logger.Error("failed to handle event",
				zap.String("event_id", msg.ID.String()),
				zap.String("event_type", msg.Type),
				zap.Error(err))
		}
	}
	return ctx.Err()
}

// Handle mails the doctor for visit.booked events and ignores the rest.
func (s *Subscriber) Handle(ctx context.Context, msg *messaging.Message) error {
	if msg.Type != model.EventVisitBooked {
		return nil
	}

	var event model.VisitBookedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", msg.Type, err)
	}

	contact, err := s.doctors.GetContact(ctx, event.DoctorID)
	if err != nil {
		return fmt.Errorf("failed to load doctor contact: %w", err)
	}
	if strings.TrimSpace(contact.Email) == "" {
		s.logger.Debug("doctor has no email", zap.String("doctor_id", event.DoctorID.String()))
		return nil
	}

	visit, err := s.visits.Get(ctx, event.VisitID)
	if err != nil {
		return fmt.Errorf("failed to load visit: %w", err)
	}

	subject, body := s.render(contact, visit)
	if err := s.mailer.Send(ctx, contact.Email, subject, body); err != nil {
		s.metrics.EmailsSent.WithLabelValues("error").Inc()
		return err
	}
	s.metrics.EmailsSent.WithLabelValues("sent").Inc()
	return nil
}

func (s *Subscriber) render(contact *model.DoctorContact, visit *model.VisitDetail) (string, string) {
	start := visit.StartTime.In(s.loc)
	subject := fmt.Sprintf("New visit on %s at %s", start.Format(model.DateLayout), start.Format(model.ClockLayout))

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", contact.ShortName())
	fmt.Fprintf(&b, "A visit has been booked into your schedule.\n\n")
	fmt.Fprintf(&b, "Patient: %s\n", visit.PatientName())
	fmt.Fprintf(&b, "Date: %s\n", start.Format(model.DateLayout))
	fmt.Fprintf(&b, "Time: %s - %s\n", start.Format(model.ClockLayout), visit.EndTime.In(s.loc).Format(model.ClockLayout))
	if visit.Comment != nil {
		fmt.Fprintf(&b, "Comment: %s\n", *visit.Comment)
	}
	return subject, b.String()
}
