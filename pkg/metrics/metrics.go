package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Booking and schedule result labels.
const (
	ResultSuccess       = "success"
	ResultConflict      = "conflict"
	ResultAlreadyBooked = "already_booked"
	ResultInvalid       = "invalid"
	ResultUnavailable   = "unavailable"
	ResultError         = "error"
)

// ResultLabel maps an operation outcome to one of the result labels.
func ResultLabel(err error) string {
	if err == nil {
		return ResultSuccess
	}
	appErr, ok := apperrors.As(err)
	if !ok {
		return ResultError
	}
	switch appErr.Code {
	case apperrors.ErrSlotConflict:
		return ResultConflict
	case apperrors.ErrSlotAlreadyBooked:
		return ResultAlreadyBooked
	case apperrors.ErrStoreUnavailable:
		return ResultUnavailable
	case apperrors.ErrNotFound, apperrors.ErrInvalidParameter, apperrors.ErrInvalidRange:
		return ResultInvalid
	default:
		return ResultError
	}
}

// Metrics holds all application metrics
type Metrics struct {
	// Scheduling metrics
	SlotsGenerated    prometheus.Counter
	ScheduleRequests  *prometheus.CounterVec
	BookingAttempts   *prometheus.CounterVec
	BookingLatency    prometheus.Histogram
	HolidayCacheHits  *prometheus.CounterVec
	PermissionLookups *prometheus.CounterVec

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxQueueSize         prometheus.Gauge

	// Messaging metrics
	RedisOperations *prometheus.CounterVec
	EmailsSent      *prometheus.CounterVec
}

// NewMetrics creates all application metrics and registers them with reg.
// A nil reg uses the default registry.
func NewMetrics(reg prometheus.Registerer, namespace, subsystem string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		SlotsGenerated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "slots_generated_total",
			Help:      "Total number of slots stored by schedule generation",
		}),
		ScheduleRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "schedule_requests_total",
			Help:      "Schedule generation requests by result",
		}, []string{"result"}),
		BookingAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "booking_attempts_total",
			Help:      "Booking attempts by result",
		}, []string{"result"}),
		BookingLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "booking_duration_seconds",
			Help:      "Time spent claiming a slot",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		HolidayCacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "holiday_cache_lookups_total",
			Help:      "Holiday-by-year cache lookups",
		}, []string{"outcome"}),
		PermissionLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "permission_cache_lookups_total",
			Help:      "Permission cache lookups",
		}, []string{"outcome"}),

		OutboxEventsProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxQueueSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_queue_size",
			Help:      "Current number of events in the outbox queue",
		}),

		RedisOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "redis_operations_total",
			Help:      "Total number of Redis operations",
		}, []string{"operation", "status"}),
		EmailsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "emails_sent_total",
			Help:      "Notification e-mails by status",
		}, []string{"status"}),
	}
}

// NewTestMetrics registers against a private registry.
func NewTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry(), "test", "")
}
