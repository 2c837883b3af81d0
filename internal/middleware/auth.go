package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

const (
	ContextUserID    = "userID"
	ContextUserEmail = "userEmail"
)

type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*model.TokenClaims, error)
}

type PermissionChecker interface {
	HasPermission(ctx context.Context, userID uuid.UUID, permission string) (bool, error)
}

type AuthMiddleware struct {
	rbac PermissionChecker
	auth TokenValidator
}

func NewAuthMiddleware(rbac PermissionChecker, auth TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{
		rbac: rbac,
		auth: auth,
	}
}

// Authenticate verifies the bearer token and stores the user in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, unauthorized("missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.RespondWithError(c, unauthorized("invalid authorization format"))
			return
		}

		claims, err := m.auth.ValidateToken(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			httputil.RespondWithError(c, unauthorized("invalid token"))
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}

// RequirePermission checks if the user has the required permission
func (m *AuthMiddleware) RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			httputil.RespondWithError(c, unauthorized("missing user"))
			return
		}

		allowed, err := m.rbac.HasPermission(c.Request.Context(), userID, permission)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		if !allowed {
			httputil.RespondWithError(c, apperrors.Forbidden("permission denied"))
			return
		}

		c.Next()
	}
}

// UserID returns the authenticated user set by Authenticate.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func unauthorized(msg string) *apperrors.AppError {
	err := apperrors.Unauthorized(nil)
	err.Message = msg
	return err
}
