package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IdentityRepository resolves providers and patients. Absent records are
// reported as ErrProviderNotFound / ErrPatientNotFound.
type IdentityRepository interface {
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
}

type AvailabilityRepository interface {
	AvailabilityLookup
	FindAvailabilityByProvider(ctx context.Context, providerID uuid.UUID) ([]AvailabilityWindow, error)
	GetAvailabilityByID(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error)
	SaveAvailability(ctx context.Context, w *AvailabilityWindow) error
}

type SlotRepository interface {
	SaveSlots(ctx context.Context, slots []Slot) error
	FindSlotsByProviderAndStartAndStatus(ctx context.Context, providerID uuid.UUID, start time.Time, status SlotStatus) ([]Slot, error)

	// ConditionalUpdateSlotStatus books slotID only while its status is still
	// expected, and returns the number of rows changed (0 or 1).
	ConditionalUpdateSlotStatus(ctx context.Context, slotID uuid.UUID, expected SlotStatus, booking SlotBooking) (int64, error)

	// Both ordered by slot start time.
	FindSlotsByProvider(ctx context.Context, providerID uuid.UUID) ([]Slot, error)
	FindSlotsByPatient(ctx context.Context, patientID uuid.UUID) ([]Slot, error)
}

// Store is the part of the repository usable inside a provider-day transaction.
type Store interface {
	AvailabilityRepository
	SlotRepository
}

// Repository contains all DB interactions needed by the services.
type Repository interface {
	IdentityRepository
	Store

	// WithProviderDay runs fn in one transaction holding an exclusive lock on
	// (providerID, date). Nothing fn writes is visible unless fn returns nil.
	WithProviderDay(ctx context.Context, providerID uuid.UUID, date time.Time, fn func(ctx context.Context, tx Store) error) error

	InsertEvent(ctx context.Context, ev EventLog) error
}

// Locker guards a critical section across processes. Implementations return an
// error when the lock cannot be obtained in time.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
