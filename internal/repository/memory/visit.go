package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func (s visitView) Book(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[req.SlotID]
	if !ok {
		return nil, apperrors.NotFound("slot", nil)
	}
	if slot.DoctorID != req.DoctorID {
		return nil, apperrors.InvalidParameter("slot does not belong to the doctor", nil)
	}
	if slot.IsBusy {
		return nil, apperrors.SlotAlreadyBooked(nil)
	}

	now := time.Now().UTC()
	var patient *model.Patient
	if req.PatientID != nil {
		existing, ok := s.patients[*req.PatientID]
		if !ok {
			return nil, apperrors.NotFound("patient", nil)
		}
		patient = existing
	} else {
		patient = &model.Patient{
			Base:       model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			LastName:   req.Patient.LastName,
			FirstName:  req.Patient.FirstName,
			MiddleName: req.Patient.MiddleName,
			Mobile:     req.Patient.Mobile,
		}
	}

	visit := &model.Visit{
		ID:              uuid.New(),
		CreatorID:       req.CreatorID,
		PatientID:       patient.ID,
		DoctorID:        slot.DoctorID,
		SlotID:          slot.ID,
		FinancingSource: req.FinancingSource,
		Comment:         req.Comment,
		CreatedAt:       now,
	}
	event, err := model.NewOutboxEvent(model.EventVisitBooked, model.VisitBookedEvent{
		VisitID:   visit.ID,
		SlotID:    slot.ID,
		DoctorID:  slot.DoctorID,
		PatientID: patient.ID,
		CreatorID: req.CreatorID,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	// Nothing below can fail, so the claim is all-or-nothing.
	s.patients[patient.ID] = patient
	s.visits[visit.ID] = visit
	slot.IsBusy = true
	s.events = append(s.events, event)

	claimed := *slot
	return &model.BookingResult{Visit: visit, Patient: patient, Slot: &claimed}, nil
}

func (s *Store) detailLocked(v *model.Visit) *model.VisitDetail {
	detail := &model.VisitDetail{Visit: *v}
	if slot, ok := s.slots[v.SlotID]; ok {
		detail.StartTime = slot.StartTime
		detail.EndTime = slot.EndTime
	}
	if p, ok := s.patients[v.PatientID]; ok {
		detail.PatientLastName = p.LastName
		detail.PatientFirstName = p.FirstName
		detail.PatientMiddleName = p.MiddleName
	}
	user := s.doctorUserLocked(v.DoctorID)
	detail.DoctorLastName = user.LastName
	detail.DoctorFirstName = user.FirstName
	detail.DoctorMiddleName = user.MiddleName
	if d, ok := s.doctors[v.DoctorID]; ok {
		detail.DoctorColor = d.Color
	}
	return detail
}

func (s visitView) Get(ctx context.Context, id uuid.UUID) (*model.VisitDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.visits[id]
	if !ok {
		return nil, apperrors.NotFound("visit", nil)
	}
	return s.detailLocked(v), nil
}

func (s visitView) ListBetween(ctx context.Context, from, to time.Time) ([]*model.VisitDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*model.VisitDetail{}
	for _, v := range s.visits {
		d := s.detailLocked(v)
		if d.StartTime.Before(from) || !d.StartTime.Before(to) {
			continue
		}
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *model.VisitDetail) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return out, nil
}

// VisitCount reports how many visits reference the slot.
func (s *Store) VisitCount(slotID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, v := range s.visits {
		if v.SlotID == slotID {
			n++
		}
	}
	return n
}
