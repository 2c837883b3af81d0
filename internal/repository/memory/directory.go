package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func (s doctorView) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doctor, ok := s.doctors[id]
	if !ok {
		return nil, apperrors.NotFound("doctor", nil)
	}
	cp := *doctor
	return &cp, nil
}

func (s doctorView) GetContact(ctx context.Context, id uuid.UUID) (*model.DoctorContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doctor, ok := s.doctors[id]
	if !ok {
		return nil, apperrors.NotFound("doctor", nil)
	}
	user := s.doctorUserLocked(doctor.ID)
	return &model.DoctorContact{
		DoctorID:   doctor.ID,
		Email:      user.Email,
		LastName:   user.LastName,
		FirstName:  user.FirstName,
		MiddleName: user.MiddleName,
	}, nil
}

func (s userView) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	cp := *user
	return &cp, nil
}

func (s userView) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, strings.TrimSpace(email)) {
			cp := *user
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("user", nil)
}

func (s userView) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return apperrors.NotFound("user", nil)
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (s rbacView) GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	permissions := slices.Clone(s.grants[userID])
	slices.Sort(permissions)
	return permissions, nil
}
