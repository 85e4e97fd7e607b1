package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	UserTypeProvider = "provider"
	UserTypePatient  = "patient"
)

type Appointment struct {
	AppointmentID       uuid.UUID
	BookingReference    string
	ProviderID          uuid.UUID
	PatientID           *uuid.UUID
	AppointmentDateTime time.Time
	AppointmentEndTime  time.Time
	AppointmentType     AppointmentType
	Status              SlotStatus
	Upcoming            bool
	ProviderName        string
	PatientName         string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AppointmentSummary counts booked slots. Cancelled slots are tallied on their
// own and are not part of Total.
type AppointmentSummary struct {
	Total     int
	Upcoming  int
	Completed int
	Cancelled int
}

type AppointmentList struct {
	UserID       uuid.UUID
	UserType     string
	Appointments []Appointment
	Summary      AppointmentSummary
}

type AppointmentQueryService struct {
	slots      SlotRepository
	identities IdentityRepository
	log        zerolog.Logger
	now        func() time.Time
}

func NewAppointmentQueryService(slots SlotRepository, identities IdentityRepository, logger zerolog.Logger) *AppointmentQueryService {
	return &AppointmentQueryService{
		slots:      slots,
		identities: identities,
		log:        logger.With().Str("component", "appointments").Logger(),
		now:        time.Now,
	}
}

func (q *AppointmentQueryService) ForProvider(ctx context.Context, providerID uuid.UUID) (*AppointmentList, error) {
	slots, err := q.slots.FindSlotsByProvider(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by provider: %w", err)
	}
	return q.aggregate(ctx, providerID, UserTypeProvider, slots), nil
}

func (q *AppointmentQueryService) ForPatient(ctx context.Context, patientID uuid.UUID) (*AppointmentList, error) {
	slots, err := q.slots.FindSlotsByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return q.aggregate(ctx, patientID, UserTypePatient, slots), nil
}

func (q *AppointmentQueryService) aggregate(ctx context.Context, userID uuid.UUID, userType string, slots []Slot) *AppointmentList {
	now := q.now()
	names := newNameResolver(q.identities, q.log)

	list := &AppointmentList{
		UserID:       userID,
		UserType:     userType,
		Appointments: []Appointment{},
	}
	for _, s := range slots {
		switch s.Status {
		case SlotBooked:
		case SlotCancelled:
			list.Summary.Cancelled++
			continue
		default:
			continue
		}

		a := Appointment{
			AppointmentID:       s.ID,
			ProviderID:          s.ProviderID,
			PatientID:           s.PatientID,
			AppointmentDateTime: s.StartTime,
			AppointmentEndTime:  s.EndTime,
			AppointmentType:     s.AppointmentType,
			Status:              s.Status,
			Upcoming:            s.StartTime.After(now),
			ProviderName:        names.provider(ctx, s.ProviderID),
			CreatedAt:           s.CreatedAt,
			UpdatedAt:           s.UpdatedAt,
		}
		if s.BookingReference != nil {
			a.BookingReference = *s.BookingReference
		}
		if s.PatientID != nil {
			a.PatientName = names.patient(ctx, *s.PatientID)
		}

		list.Appointments = append(list.Appointments, a)
		list.Summary.Total++
		if a.Upcoming {
			list.Summary.Upcoming++
		} else {
			list.Summary.Completed++
		}
	}
	return list
}

// nameResolver memoizes display-name lookups for one aggregation. A missing or
// unreadable counterpart yields an empty name.
type nameResolver struct {
	identities IdentityRepository
	log        zerolog.Logger
	providers  map[uuid.UUID]string
	patients   map[uuid.UUID]string
}

func newNameResolver(identities IdentityRepository, logger zerolog.Logger) *nameResolver {
	return &nameResolver{
		identities: identities,
		log:        logger,
		providers:  make(map[uuid.UUID]string),
		patients:   make(map[uuid.UUID]string),
	}
}

func (r *nameResolver) provider(ctx context.Context, id uuid.UUID) string {
	if name, ok := r.providers[id]; ok {
		return name
	}
	var name string
	p, err := r.identities.GetProviderByID(ctx, id)
	switch {
	case err == nil:
		name = p.FullName()
	case !errors.Is(err, ErrNotFound):
		r.log.Warn().Err(err).Stringer("provider_id", id).Msg("resolve provider name")
	}
	r.providers[id] = name
	return name
}

func (r *nameResolver) patient(ctx context.Context, id uuid.UUID) string {
	if name, ok := r.patients[id]; ok {
		return name
	}
	var name string
	p, err := r.identities.GetPatientByID(ctx, id)
	switch {
	case err == nil:
		name = p.FullName()
	case !errors.Is(err, ErrNotFound):
		r.log.Warn().Err(err).Stringer("patient_id", id).Msg("resolve patient name")
	}
	r.patients[id] = name
	return name
}
