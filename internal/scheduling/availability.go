package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AvailabilityRequest is a provider's request to publish one window. Zero values
// for SlotDurationMinutes, MaxAppointmentsPerSlot and AppointmentType take the
// defaults (30 minutes, 1, CONSULTATION).
type AvailabilityRequest struct {
	Date                   time.Time
	StartTime              TimeOfDay
	EndTime                TimeOfDay
	Timezone               string
	SlotDurationMinutes    int
	BreakDurationMinutes   int
	IsRecurring            bool
	RecurrencePattern      *RecurrencePattern
	RecurrenceEndDate      *time.Time
	AppointmentType        AppointmentType
	MaxAppointmentsPerSlot int
	Location               *Location
	Pricing                *Pricing
	Notes                  *string
	SpecialRequirements    []string
}

type DateRange struct {
	Start time.Time
	End   time.Time
}

type AvailabilityResult struct {
	AvailabilityID             uuid.UUID
	SlotsCreated               int
	DateRange                  DateRange
	TotalAppointmentsAvailable int
}

// SlotCounts tallies a window's slots by their current status.
type SlotCounts struct {
	Available int
	Booked    int
	Cancelled int
	Blocked   int
}

type WindowSummary struct {
	AvailabilityWindow
	AvailableAppointments int
	Slots                 SlotCounts
}

// StatusSummary counts windows by their administrative status.
type StatusSummary struct {
	TotalAvailable int
	TotalBooked    int
	TotalCancelled int
	TotalBlocked   int
}

type AvailabilityListing struct {
	ProviderID   uuid.UUID
	TotalWindows int
	Windows      []WindowSummary
	Summary      StatusSummary
}

type AvailabilityManager struct {
	repo   Repository
	locker Locker
	log    zerolog.Logger
	now    func() time.Time
}

// NewAvailabilityManager builds the manager. locker may be nil, in which case
// only the database transaction serializes window creation.
func NewAvailabilityManager(repo Repository, locker Locker, logger zerolog.Logger) *AvailabilityManager {
	return &AvailabilityManager{
		repo:   repo,
		locker: locker,
		log:    logger.With().Str("component", "availability").Logger(),
		now:    time.Now,
	}
}

// CreateAvailability validates req, rejects windows overlapping the provider's
// existing windows on the same date, and stores the window together with its
// generated slots as one unit.
func (m *AvailabilityManager) CreateAvailability(ctx context.Context, providerID uuid.UUID, req AvailabilityRequest) (*AvailabilityResult, error) {
	req = withDefaults(req)
	if err := validateAvailability(req); err != nil {
		return nil, err
	}

	if _, err := m.repo.GetProviderByID(ctx, providerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}

	date := DateOf(req.Date)
	now := m.now().UTC()
	window := AvailabilityWindow{
		ID:                     uuid.New(),
		ProviderID:             providerID,
		Date:                   date,
		StartTime:              req.StartTime,
		EndTime:                req.EndTime,
		Timezone:               strings.TrimSpace(req.Timezone),
		SlotDurationMinutes:    req.SlotDurationMinutes,
		BreakDurationMinutes:   req.BreakDurationMinutes,
		IsRecurring:            req.IsRecurring,
		RecurrencePattern:      req.RecurrencePattern,
		RecurrenceEndDate:      req.RecurrenceEndDate,
		AppointmentType:        req.AppointmentType,
		MaxAppointmentsPerSlot: req.MaxAppointmentsPerSlot,
		Location:               req.Location,
		Pricing:                req.Pricing,
		Notes:                  req.Notes,
		SpecialRequirements:    req.SpecialRequirements,
		Status:                 WindowAvailable,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	slots := materializeSlots(window, now)

	create := func(ctx context.Context) error {
		return m.repo.WithProviderDay(ctx, providerID, date, func(ctx context.Context, tx Store) error {
			conflict, err := NewConflictChecker(tx).HasConflict(ctx, providerID, date, window.StartTime, window.EndTime)
			if err != nil {
				return err
			}
			if conflict {
				return ErrConflict
			}
			if err := tx.SaveAvailability(ctx, &window); err != nil {
				return fmt.Errorf("save availability: %w", err)
			}
			if err := tx.SaveSlots(ctx, slots); err != nil {
				return fmt.Errorf("save slots: %w", err)
			}
			return nil
		})
	}

	var err error
	if m.locker != nil {
		err = m.locker.WithLock(ctx, providerDayKey(providerID, date), create)
	} else {
		err = create(ctx)
	}
	if err != nil {
		if errors.Is(err, ErrConflict) {
			m.log.Info().
				Stringer("provider_id", providerID).
				Str("date", date.Format(DateLayout)).
				Str("start", window.StartTime.String()).
				Str("end", window.EndTime.String()).
				Msg("availability rejected: overlaps existing window")
		}
		return nil, err
	}

	end := date
	if window.RecurrenceEndDate != nil {
		end = DateOf(*window.RecurrenceEndDate)
	}
	result := &AvailabilityResult{
		AvailabilityID:             window.ID,
		SlotsCreated:               len(slots),
		DateRange:                  DateRange{Start: date, End: end},
		TotalAppointmentsAvailable: len(slots),
	}

	m.log.Info().
		Stringer("provider_id", providerID).
		Stringer("availability_id", window.ID).
		Str("date", date.Format(DateLayout)).
		Int("slots", len(slots)).
		Msg("availability created")

	recordEvent(ctx, m.repo, m.log, window.ID, EventAvailabilityCreated, map[string]any{
		"provider_id":   providerID.String(),
		"date":          date.Format(DateLayout),
		"start_time":    window.StartTime.String(),
		"end_time":      window.EndTime.String(),
		"slots_created": len(slots),
	})

	return result, nil
}

// ListAvailability returns every window of the provider with per-window slot
// tallies and a summary of window statuses.
func (m *AvailabilityManager) ListAvailability(ctx context.Context, providerID uuid.UUID) (*AvailabilityListing, error) {
	windows, err := m.repo.FindAvailabilityByProvider(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAvailabilityAbsent, providerID)
	}

	slots, err := m.repo.FindSlotsByProvider(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("list provider slots: %w", err)
	}
	counts := make(map[uuid.UUID]*SlotCounts, len(windows))
	for _, s := range slots {
		c, ok := counts[s.AvailabilityWindowID]
		if !ok {
			c = &SlotCounts{}
			counts[s.AvailabilityWindowID] = c
		}
		switch s.Status {
		case SlotAvailable:
			c.Available++
		case SlotBooked:
			c.Booked++
		case SlotCancelled:
			c.Cancelled++
		case SlotBlocked:
			c.Blocked++
		}
	}

	listing := &AvailabilityListing{
		ProviderID:   providerID,
		TotalWindows: len(windows),
		Windows:      make([]WindowSummary, 0, len(windows)),
	}
	for _, w := range windows {
		ws := WindowSummary{
			AvailabilityWindow:    w,
			AvailableAppointments: w.MaxAppointmentsPerSlot - w.CurrentAppointments,
		}
		if c, ok := counts[w.ID]; ok {
			ws.Slots = *c
		}
		listing.Windows = append(listing.Windows, ws)

		switch w.Status {
		case WindowAvailable:
			listing.Summary.TotalAvailable++
		case WindowBooked:
			listing.Summary.TotalBooked++
		case WindowCancelled:
			listing.Summary.TotalCancelled++
		case WindowBlocked:
			listing.Summary.TotalBlocked++
		}
	}

	return listing, nil
}

func materializeSlots(w AvailabilityWindow, now time.Time) []Slot {
	bounds := GenerateSlots(w)
	slots := make([]Slot, 0, len(bounds))
	for _, b := range bounds {
		slots = append(slots, Slot{
			ID:                   uuid.New(),
			AvailabilityWindowID: w.ID,
			ProviderID:           w.ProviderID,
			StartTime:            b.Start,
			EndTime:              b.End,
			Status:               SlotAvailable,
			AppointmentType:      w.AppointmentType,
			CreatedAt:            now,
			UpdatedAt:            now,
		})
	}
	return slots
}

func withDefaults(req AvailabilityRequest) AvailabilityRequest {
	if req.SlotDurationMinutes == 0 {
		req.SlotDurationMinutes = DefaultSlotDuration
	}
	if req.MaxAppointmentsPerSlot == 0 {
		req.MaxAppointmentsPerSlot = MinAppointmentsPerSlot
	}
	if req.AppointmentType == "" {
		req.AppointmentType = TypeConsultation
	}
	if req.Pricing != nil && req.Pricing.Currency == "" {
		p := *req.Pricing
		p.Currency = DefaultCurrency
		req.Pricing = &p
	}
	return req
}

func validateAvailability(req AvailabilityRequest) error {
	if req.Date.IsZero() {
		return invalidf("date is required")
	}
	if !req.StartTime.Valid() || !req.EndTime.Valid() {
		return invalidf("start and end time must fall within one day")
	}
	if req.EndTime <= req.StartTime {
		return ErrInvalidRange
	}
	if strings.TrimSpace(req.Timezone) == "" {
		return invalidf("timezone is required")
	}
	if req.SlotDurationMinutes < MinSlotDuration || req.SlotDurationMinutes > MaxSlotDuration {
		return invalidf("slot duration must be between %d and %d minutes", MinSlotDuration, MaxSlotDuration)
	}
	if req.BreakDurationMinutes < MinBreakDuration || req.BreakDurationMinutes > MaxBreakDuration {
		return invalidf("break duration must be between %d and %d minutes", MinBreakDuration, MaxBreakDuration)
	}
	if req.MaxAppointmentsPerSlot < MinAppointmentsPerSlot || req.MaxAppointmentsPerSlot > MaxAppointmentsPerSlot {
		return invalidf("max appointments per slot must be between %d and %d", MinAppointmentsPerSlot, MaxAppointmentsPerSlot)
	}
	if _, err := ParseAppointmentType(string(req.AppointmentType)); err != nil {
		return err
	}
	if req.RecurrencePattern != nil {
		if _, err := ParseRecurrencePattern(string(*req.RecurrencePattern)); err != nil {
			return err
		}
	}
	if req.RecurrenceEndDate != nil && DateOf(*req.RecurrenceEndDate).Before(DateOf(req.Date)) {
		return invalidf("recurrence end date must not be before the window date")
	}
	if req.Location != nil {
		if _, err := ParseLocationType(string(req.Location.Type)); err != nil {
			return err
		}
	}
	if req.Pricing != nil && req.Pricing.BaseFee.IsNegative() {
		return invalidf("base fee must not be negative")
	}
	if req.Notes != nil && len([]rune(*req.Notes)) > MaxNotesLength {
		return invalidf("notes must be at most %d characters", MaxNotesLength)
	}
	return nil
}

func providerDayKey(providerID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("availability:%s:%s", providerID, DateOf(date).Format(DateLayout))
}
