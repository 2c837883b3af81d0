package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

type Service struct {
	userRepo repository.UserRepository
	jwtSvc   auth.JWTService
	hasher   security.PasswordHasher
	logger   *logger.Logger
}

func NewService(userRepo repository.UserRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher, log *logger.Logger) *Service {
	return &Service{
		userRepo: userRepo,
		jwtSvc:   jwtSvc,
		hasher:   hasher,
		logger:   log,
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	invalid := apperrors.Unauthorized(nil)
	invalid.Message = "invalid credentials"

	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, invalid
		}
		return nil, err
	}
	if user.Status != model.UserStatusActive {
		s.logger.WithContext(ctx).Warn("login rejected for inactive user", "user_id", user.ID.String())
		return nil, invalid
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if !errors.Is(err, security.ErrPasswordMismatch) {
			s.logger.WithContext(ctx).Error(err, "stored password hash is unreadable", "user_id", user.ID.String())
		}
		return nil, invalid
	}
	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, password)
	}

	token, err := s.jwtSvc.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.logger.WithContext(ctx).Info("user logged in", "user_id", user.ID.String())
	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtSvc.TTL().Seconds()),
	}, nil
}

// rehash upgrades a stored hash to the hasher's current cost. Failures are
// logged and never block the login.
func (s *Service) rehash(ctx context.Context, user *model.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.userRepo.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		s.logger.WithContext(ctx).Warn("password rehash failed", "user_id", user.ID.String(), "error", err.Error())
		return
	}
	s.logger.WithContext(ctx).Info("password hash upgraded", "user_id", user.ID.String())
}

func (s *Service) ValidateToken(ctx context.Context, token string) (*model.TokenClaims, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return claims, nil
}
