package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/middleware"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// PermissionGuard builds per-route permission checks.
type PermissionGuard interface {
	RequirePermission(permission string) gin.HandlerFunc
}

// CurrentUser returns the authenticated user or an UNAUTHORIZED error.
func CurrentUser(c *gin.Context) (uuid.UUID, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return uuid.Nil, apperrors.Unauthorized(nil)
	}
	return id, nil
}

// ParseUUID reads a path or query value as a UUID.
func ParseUUID(value, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, apperrors.InvalidParameter("invalid "+name, err)
	}
	return id, nil
}
