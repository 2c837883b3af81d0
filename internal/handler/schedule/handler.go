package schedule

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Service interface {
	CreateSchedule(ctx context.Context, req *model.CreateScheduleRequest, creatorID uuid.UUID) (*model.ScheduleResult, error)
	Available(ctx context.Context, doctorID uuid.UUID, date string) ([]model.AvailableSlot, error)
	DoctorSpan(ctx context.Context, doctorID uuid.UUID) (*model.ScheduleSpan, error)
	ListSpans(ctx context.Context) ([]*model.ScheduleSpan, error)
}

type Handler struct {
	svc   Service
	guard handler.PermissionGuard
}

func NewHandler(svc Service, guard handler.PermissionGuard) *Handler {
	return &Handler{svc: svc, guard: guard}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	schedules := r.Group("/schedules")
	{
		schedules.POST("", h.guard.RequirePermission(model.PermissionScheduleCreate), h.CreateSchedule)
		schedules.GET("/available", h.guard.RequirePermission(model.PermissionScheduleRead), h.ListAvailable)
		schedules.GET("/summary", h.guard.RequirePermission(model.PermissionScheduleRead), h.ListSummaries)
		schedules.GET("/summary/:doctor_id", h.guard.RequirePermission(model.PermissionScheduleRead), h.GetSummary)
	}
}

func (h *Handler) CreateSchedule(c *gin.Context) {
	var req model.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	creatorID, err := handler.CurrentUser(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	result, err := h.svc.CreateSchedule(c.Request.Context(), &req, creatorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, result)
}

// ListAvailable serves GET /schedules/available?doctor_id=&date=DD.MM.YYYY.
func (h *Handler) ListAvailable(c *gin.Context) {
	doctorID, err := handler.ParseUUID(c.Query("doctor_id"), "doctor ID")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	slots, err := h.svc.Available(c.Request.Context(), doctorID, c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, slots)
}

func (h *Handler) ListSummaries(c *gin.Context) {
	spans, err := h.svc.ListSpans(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, spans)
}

func (h *Handler) GetSummary(c *gin.Context) {
	doctorID, err := handler.ParseUUID(c.Param("doctor_id"), "doctor ID")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	span, err := h.svc.DoctorSpan(c.Request.Context(), doctorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, span)
}
