package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/repository"
)

type rbacRepository struct {
	BaseRepository
}

func NewRBACRepository(base BaseRepository) repository.RBACRepository {
	return &rbacRepository{base}
}

// GetUserPermissions resolves the user's roles to permission names in one query.
func (r *rbacRepository) GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `
		SELECT DISTINCT p.name
		FROM user_roles ur
		JOIN role_permissions rp ON rp.role_id = ur.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1
		ORDER BY p.name
	`
	permissions := []string{}
	if err := r.db.SelectContext(ctx, &permissions, query, userID); err != nil {
		return nil, mapStoreError(fmt.Errorf("failed to get user permissions: %w", err))
	}
	return permissions, nil
}
