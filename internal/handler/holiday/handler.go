package holiday

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
	ListYear(ctx context.Context, year int) ([]*model.Holiday, error)
	Create(ctx context.Context, req *model.CreateHolidayRequest) (*model.Holiday, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	svc   Service
	guard handler.PermissionGuard
}

func NewHandler(svc Service, guard handler.PermissionGuard) *Handler {
	return &Handler{svc: svc, guard: guard}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	holidays := r.Group("/holidays")
	{
		holidays.GET("", h.guard.RequirePermission(model.PermissionScheduleRead), h.ListHolidays)
		holidays.POST("", h.guard.RequirePermission(model.PermissionHolidayManage), h.CreateHoliday)
		holidays.DELETE("/:id", h.guard.RequirePermission(model.PermissionHolidayManage), h.DeleteHoliday)
	}
}

// ListHolidays serves GET /holidays?year=YYYY; the year defaults to the
// current one.
func (h *Handler) ListHolidays(c *gin.Context) {
	year := time.Now().Year()
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.InvalidParameter("invalid year", err))
			return
		}
		year = parsed
	}

	holidays, err := h.svc.ListYear(c.Request.Context(), year)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, holidays)
}

func (h *Handler) CreateHoliday(c *gin.Context) {
	var req model.CreateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	holiday, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, holiday)
}

func (h *Handler) DeleteHoliday(c *gin.Context) {
	id, err := handler.ParseUUID(c.Param("id"), "holiday ID")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": id})
}
