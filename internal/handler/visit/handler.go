package visit

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Service interface {
	Book(ctx context.Context, req *model.CreateVisitRequest, creatorID uuid.UUID) (*model.BookingResult, error)
	GetVisit(ctx context.Context, id uuid.UUID) (*model.VisitDetail, error)
	ListCalendar(ctx context.Context, from, to time.Time) ([]model.CalendarEvent, error)
}

type Handler struct {
	svc   Service
	guard handler.PermissionGuard
}

func NewHandler(svc Service, guard handler.PermissionGuard) *Handler {
	return &Handler{svc: svc, guard: guard}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	visits := r.Group("/visits")
	{
		visits.POST("", h.guard.RequirePermission(model.PermissionVisitCreate), h.CreateVisit)
		visits.GET("", h.guard.RequirePermission(model.PermissionVisitRead), h.ListVisits)
		visits.GET("/:id", h.guard.RequirePermission(model.PermissionVisitRead), h.GetVisit)
	}
}

func (h *Handler) CreateVisit(c *gin.Context) {
	var req model.CreateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	creatorID, err := handler.CurrentUser(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	result, err := h.svc.Book(c.Request.Context(), &req, creatorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, model.CreateVisitResponse{VisitID: result.Visit.ID})
}

func (h *Handler) GetVisit(c *gin.Context) {
	id, err := handler.ParseUUID(c.Param("id"), "visit ID")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	visit, err := h.svc.GetVisit(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, visit)
}

// ListVisits serves the calendar feed; date_start and date_end are epoch
// milliseconds.
func (h *Handler) ListVisits(c *gin.Context) {
	from, err := epochMillisQuery(c, "date_start")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	to, err := epochMillisQuery(c, "date_end")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	events, err := h.svc.ListCalendar(c.Request.Context(), from, to)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, events)
}

func epochMillisQuery(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, apperrors.InvalidRange(name+" is required", nil)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, apperrors.InvalidRange(name+" must be epoch milliseconds", err)
	}
	return time.UnixMilli(ms).UTC(), nil
}
