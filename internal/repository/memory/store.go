// Package memory keeps the scheduling data in process memory. It backs local
// runs without PostgreSQL and the service tests, with the same semantics as
// the postgres repositories.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Store is safe for concurrent use. A single mutex makes every write a
// serialized unit, which gives the same all-or-nothing behavior as a
// database transaction.
type Store struct {
	mu       sync.RWMutex
	outboxMu sync.Mutex
	slots    map[uuid.UUID]*model.Slot
	visits   map[uuid.UUID]*model.Visit
	patients map[uuid.UUID]*model.Patient
	holidays map[uuid.UUID]*model.Holiday
	doctors  map[uuid.UUID]*model.Doctor
	users    map[uuid.UUID]*model.User
	grants   map[uuid.UUID][]string
	events   []*model.OutboxEvent
}

func NewStore() *Store {
	return &Store{
		slots:    make(map[uuid.UUID]*model.Slot),
		visits:   make(map[uuid.UUID]*model.Visit),
		patients: make(map[uuid.UUID]*model.Patient),
		holidays: make(map[uuid.UUID]*model.Holiday),
		doctors:  make(map[uuid.UUID]*model.Doctor),
		users:    make(map[uuid.UUID]*model.User),
		grants:   make(map[uuid.UUID][]string),
	}
}

type (
	slotView    struct{ *Store }
	visitView   struct{ *Store }
	holidayView struct{ *Store }
	doctorView  struct{ *Store }
	userView    struct{ *Store }
	rbacView    struct{ *Store }
)

func (s *Store) Slots() repository.SlotRepository       { return slotView{s} }
func (s *Store) Visits() repository.VisitRepository     { return visitView{s} }
func (s *Store) Holidays() repository.HolidayRepository { return holidayView{s} }
func (s *Store) Doctors() repository.DoctorRepository   { return doctorView{s} }
func (s *Store) Users() repository.UserRepository       { return userView{s} }
func (s *Store) RBAC() repository.RBACRepository        { return rbacView{s} }

// Repositories exposes the store through every repository interface.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Slots:    s.Slots(),
		Visits:   s.Visits(),
		Holidays: s.Holidays(),
		Doctors:  s.Doctors(),
		Users:    s.Users(),
		RBAC:     s.RBAC(),
		Outbox:   s.Outbox(),
	}
}

// AddDoctor registers a doctor and its user.
func (s *Store) AddDoctor(doctor *model.Doctor, user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctors[doctor.ID] = doctor
	if user != nil {
		s.users[user.ID] = user
	}
}

// AddUser registers a user with the given permission names.
func (s *Store) AddUser(user *model.User, permissions ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	s.grants[user.ID] = slices.Clone(permissions)
}

// Events returns copies of the outbox events recorded so far.
func (s *Store) Events() []*model.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.OutboxEvent, 0, len(s.events))
	for _, e := range s.events {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

func (s slotView) BulkInsert(ctx context.Context, doctorID, creatorID uuid.UUID, slots []model.TimeSlot) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperrors.StoreUnavailable(err)
	}
	if len(slots) == 0 {
		return 0, nil
	}

	candidates := repository.SortSlots(slots)
	if later, earlier, ok := repository.FindBatchOverlap(candidates); ok {
		return 0, repository.BatchOverlapError(earlier, later)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doctors[doctorID]; !ok {
		return 0, apperrors.NotFound("doctor", nil)
	}

	existing := s.doctorSlotsLocked(doctorID)
	if c, slot, ok := repository.FindConflict(candidates, existing); ok {
		return 0, repository.ConflictError(c, slot.Interval(), &slot.ID)
	}

	now := time.Now().UTC()
	for _, c := range candidates {
		slot := &model.Slot{
			ID:        uuid.New(),
			DoctorID:  doctorID,
			CreatorID: creatorID,
			StartTime: c.Start,
			EndTime:   c.End,
			CreatedAt: now,
		}
		s.slots[slot.ID] = slot
	}
	return len(candidates), nil
}

func (s *Store) doctorSlotsLocked(doctorID uuid.UUID) []*model.Slot {
	var out []*model.Slot
	for _, slot := range s.slots {
		if slot.DoctorID == doctorID {
			out = append(out, slot)
		}
	}
	slices.SortFunc(out, func(a, b *model.Slot) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return out
}

func (s slotView) Get(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[id]
	if !ok {
		return nil, apperrors.NotFound("slot", nil)
	}
	cp := *slot
	return &cp, nil
}

func (s slotView) ListAvailable(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*model.Slot{}
	for _, slot := range s.doctorSlotsLocked(doctorID) {
		if slot.IsBusy || slot.StartTime.Before(from) || !slot.StartTime.Before(to) {
			continue
		}
		cp := *slot
		out = append(out, &cp)
	}
	return out, nil
}

func (s slotView) GetDoctorSpan(ctx context.Context, doctorID uuid.UUID) (*model.ScheduleSpan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	span := s.spanLocked(doctorID)
	if span == nil {
		return nil, apperrors.NotFound("schedule", nil)
	}
	return span, nil
}

func (s slotView) ListDoctorSpans(ctx context.Context) ([]*model.ScheduleSpan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[uuid.UUID]bool)
	spans := []*model.ScheduleSpan{}
	for _, slot := range s.slots {
		if seen[slot.DoctorID] {
			continue
		}
		seen[slot.DoctorID] = true
		spans = append(spans, s.spanLocked(slot.DoctorID))
	}
	slices.SortFunc(spans, func(a, b *model.ScheduleSpan) int {
		return cmp.Compare(a.DoctorName, b.DoctorName)
	})
	return spans, nil
}

func (s *Store) spanLocked(doctorID uuid.UUID) *model.ScheduleSpan {
	slots := s.doctorSlotsLocked(doctorID)
	if len(slots) == 0 {
		return nil
	}
	span := &model.ScheduleSpan{
		DoctorID:   doctorID,
		DoctorName: s.doctorUserLocked(doctorID).FullName(),
		FirstStart: slots[0].StartTime,
		LastEnd:    slots[0].EndTime,
	}
	for _, slot := range slots {
		if slot.EndTime.After(span.LastEnd) {
			span.LastEnd = slot.EndTime
		}
		span.Total++
		if slot.IsBusy {
			span.Busy++
		}
	}
	return span
}

func (s *Store) doctorUserLocked(doctorID uuid.UUID) *model.User {
	if doctor, ok := s.doctors[doctorID]; ok {
		if user, ok := s.users[doctor.UserID]; ok {
			return user
		}
	}
	return &model.User{}
}
