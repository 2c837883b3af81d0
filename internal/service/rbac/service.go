package rbac

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type Service struct {
	repo    repository.RBACRepository
	cache   *gocache.Cache
	metrics *metrics.Metrics
}

// NewService caches each user's permission list for ttl.
func NewService(repo repository.RBACRepository, ttl time.Duration, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		cache:   gocache.New(ttl, 2*ttl),
		metrics: m,
	}
}

func (s *Service) HasPermission(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	perms, err := s.permissions(ctx, userID)
	if err != nil {
		return false, err
	}
	return slices.Contains(perms, permission), nil
}

func (s *Service) permissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	key := userID.String()
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.PermissionLookups.WithLabelValues("hit").Inc()
		return cached.([]string), nil
	}
	s.metrics.PermissionLookups.WithLabelValues("miss").Inc()

	perms, err := s.repo.GetUserPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user permissions: %w", err)
	}
	s.cache.SetDefault(key, perms)
	return perms, nil
}

// Invalidate drops the cached permissions of a user.
func (s *Service) Invalidate(userID uuid.UUID) {
	s.cache.Delete(userID.String())
}
