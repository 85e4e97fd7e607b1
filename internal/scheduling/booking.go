package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type BookingRequest struct {
	ProviderID          uuid.UUID
	PatientID           uuid.UUID
	AppointmentDateTime time.Time
	AppointmentType     string
	Notes               string
}

// BookingRecord is the confirmation handed back for a booked slot. The
// appointment id is the slot id.
type BookingRecord struct {
	AppointmentID       uuid.UUID
	BookingReference    string
	ProviderID          uuid.UUID
	PatientID           uuid.UUID
	AppointmentDateTime time.Time
	AppointmentEndTime  time.Time
	AppointmentType     AppointmentType
	Status              SlotStatus
	Notes               string
	ProviderName        string
	PatientName         string
	Location            *Location
	Pricing             *Pricing
}

// NewBookingReference returns "BK" + Unix milliseconds + 8 random upper-case
// hex characters. The result is URL-safe.
func NewBookingReference() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "BK" + strconv.FormatInt(time.Now().UnixMilli(), 10) + strings.ToUpper(suffix)
}

type BookingEngine struct {
	repo      Repository
	log       zerolog.Logger
	now       func() time.Time
	reference func() string
}

func NewBookingEngine(repo Repository, logger zerolog.Logger) *BookingEngine {
	return &BookingEngine{
		repo:      repo,
		log:       logger.With().Str("component", "booking").Logger(),
		now:       time.Now,
		reference: NewBookingReference,
	}
}

// Book reserves the provider's free slot starting at req.AppointmentDateTime
// for the patient. The AVAILABLE -> BOOKED transition is a conditional write, so
// of any number of concurrent callers for one slot at most one succeeds. A lost
// race triggers one re-selection before giving up.
func (e *BookingEngine) Book(ctx context.Context, req BookingRequest) (*BookingRecord, error) {
	provider, err := e.repo.GetProviderByID(ctx, req.ProviderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}
	patient, err := e.repo.GetPatientByID(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	start := req.AppointmentDateTime.UTC()
	if !start.After(e.now()) {
		return nil, ErrNotInFuture
	}
	apptType, err := ParseAppointmentType(req.AppointmentType)
	if err != nil {
		return nil, err
	}
	if len([]rune(req.Notes)) > MaxNotesLength {
		return nil, invalidf("notes must be at most %d characters", MaxNotesLength)
	}

	booking := SlotBooking{
		PatientID:       patient.ID,
		AppointmentType: apptType,
	}

	var booked *Slot
	for attempt := 0; attempt < 2 && booked == nil; attempt++ {
		candidates, err := e.repo.FindSlotsByProviderAndStartAndStatus(ctx, provider.ID, start, SlotAvailable)
		if err != nil {
			return nil, fmt.Errorf("find available slots: %w", err)
		}
		if len(candidates) == 0 {
			if attempt == 0 {
				return nil, ErrNoAvailability
			}
			return nil, ErrSlotNoLongerAvailable
		}

		slot := candidates[0]
		if slot.Status != SlotAvailable {
			return nil, ErrSlotNoLongerAvailable
		}

		booking.BookingReference = e.reference()
		n, err := e.repo.ConditionalUpdateSlotStatus(ctx, slot.ID, SlotAvailable, booking)
		if err != nil {
			return nil, fmt.Errorf("book slot: %w", err)
		}
		if n == 0 {
			e.log.Debug().
				Stringer("slot_id", slot.ID).
				Int("attempt", attempt+1).
				Msg("slot taken by a concurrent booking")
			continue
		}

		slot.Status = SlotBooked
		slot.PatientID = &booking.PatientID
		slot.AppointmentType = booking.AppointmentType
		ref := booking.BookingReference
		slot.BookingReference = &ref
		booked = &slot
	}
	if booked == nil {
		return nil, ErrSlotNoLongerAvailable
	}

	record := &BookingRecord{
		AppointmentID:       booked.ID,
		BookingReference:    booking.BookingReference,
		ProviderID:          provider.ID,
		PatientID:           patient.ID,
		AppointmentDateTime: booked.StartTime,
		AppointmentEndTime:  booked.EndTime,
		AppointmentType:     booked.AppointmentType,
		Status:              booked.Status,
		Notes:               req.Notes,
		ProviderName:        provider.FullName(),
		PatientName:         patient.FullName(),
	}

	window, err := e.repo.GetAvailabilityByID(ctx, booked.AvailabilityWindowID)
	if err != nil {
		e.log.Warn().Err(err).
			Stringer("slot_id", booked.ID).
			Stringer("availability_id", booked.AvailabilityWindowID).
			Msg("load owning window for confirmation")
	} else {
		record.Location = window.Location
		record.Pricing = window.Pricing
	}

	e.log.Info().
		Stringer("slot_id", booked.ID).
		Stringer("provider_id", provider.ID).
		Stringer("patient_id", patient.ID).
		Str("booking_reference", record.BookingReference).
		Time("start", booked.StartTime).
		Msg("appointment booked")

	recordEvent(ctx, e.repo, e.log, booked.ID, EventAppointmentBooked, map[string]any{
		"provider_id":       provider.ID.String(),
		"patient_id":        patient.ID.String(),
		"booking_reference": record.BookingReference,
		"start":             booked.StartTime,
	})

	return record, nil
}
