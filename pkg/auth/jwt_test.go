package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("secret", "clinic-api", time.Hour)
	user := &model.User{Base: model.Base{ID: uuid.New()}, Email: "a@b.test"}

	token, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "a@b.test", claims.Email)
	assert.Equal(t, user.ID.String(), claims.Subject)
}

func TestValidateToken_Rejects(t *testing.T) {
	user := &model.User{Base: model.Base{ID: uuid.New()}}
	svc := NewJWTService("secret", "clinic-api", time.Hour)

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewJWTService("other", "clinic-api", time.Hour).GenerateAccessToken(user)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := NewJWTService("secret", "someone-else", time.Hour).GenerateAccessToken(user)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		old := &hmacService{secret: []byte("secret"), issuer: "clinic-api", ttl: time.Minute, now: func() time.Time {
			return time.Now().Add(-time.Hour)
		}}
		token, err := old.GenerateAccessToken(user)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, model.TokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "clinic-api",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			UserID: user.ID,
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing user id", func(t *testing.T) {
		token, err := svc.GenerateAccessToken(&model.User{})
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
