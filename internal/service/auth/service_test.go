package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	jwtauth "github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

func newService(t *testing.T, status string) (*Service, *model.User) {
	t.Helper()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("registrar-pass")
	require.NoError(t, err)

	user := &model.User{
		Base:         model.Base{ID: uuid.New()},
		Email:        "Registrar@Clinic.test",
		PasswordHash: hash,
		Status:       status,
	}
	store := memory.NewStore()
	store.AddUser(user)

	jwtSvc := jwtauth.NewJWTService("test-secret", "clinic-api", time.Hour)
	return NewService(store.Users(), jwtSvc, hasher, logger.Nop()), user
}

func TestLogin(t *testing.T) {
	svc, user := newService(t, model.UserStatusActive)
	ctx := context.Background()

	resp, err := svc.Login(ctx, "  registrar@clinic.test ", "registrar-pass")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestLogin_Rejected(t *testing.T) {
	ctx := context.Background()

	active, _ := newService(t, model.UserStatusActive)
	_, err := active.Login(ctx, "registrar@clinic.test", "wrong-password")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))

	_, err = active.Login(ctx, "nobody@clinic.test", "registrar-pass")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))

	locked, _ := newService(t, model.UserStatusLocked)
	_, err = locked.Login(ctx, "registrar@clinic.test", "registrar-pass")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestValidateToken_Garbage(t *testing.T) {
	svc, _ := newService(t, model.UserStatusActive)
	_, err := svc.ValidateToken(context.Background(), "not-a-token")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestLogin_UpgradesHashCost(t *testing.T) {
	ctx := context.Background()
	old, err := security.NewBcryptHasher(bcrypt.MinCost).Hash("registrar-pass")
	require.NoError(t, err)

	user := &model.User{
		Base:         model.Base{ID: uuid.New()},
		Email:        "registrar@clinic.test",
		PasswordHash: old,
		Status:       model.UserStatusActive,
	}
	store := memory.NewStore()
	store.AddUser(user)

	jwtSvc := jwtauth.NewJWTService("test-secret", "clinic-api", time.Hour)
	svc := NewService(store.Users(), jwtSvc, security.NewBcryptHasher(bcrypt.MinCost+1), logger.Nop())

	_, err = svc.Login(ctx, "registrar@clinic.test", "registrar-pass")
	require.NoError(t, err)

	stored, err := store.Users().GetByEmail(ctx, "registrar@clinic.test")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)

	_, err = svc.Login(ctx, "registrar@clinic.test", "registrar-pass")
	assert.NoError(t, err)
}
