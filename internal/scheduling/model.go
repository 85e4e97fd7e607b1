package scheduling

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WindowStatus string

const (
	WindowAvailable   WindowStatus = "AVAILABLE"
	WindowBooked      WindowStatus = "BOOKED"
	WindowCancelled   WindowStatus = "CANCELLED"
	WindowBlocked     WindowStatus = "BLOCKED"
	WindowMaintenance WindowStatus = "MAINTENANCE"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "AVAILABLE"
	SlotBooked    SlotStatus = "BOOKED"
	SlotCancelled SlotStatus = "CANCELLED"
	SlotBlocked   SlotStatus = "BLOCKED"
)

type AppointmentType string

const (
	TypeConsultation AppointmentType = "CONSULTATION"
	TypeFollowUp     AppointmentType = "FOLLOW_UP"
	TypeEmergency    AppointmentType = "EMERGENCY"
	TypeTelemedicine AppointmentType = "TELEMEDICINE"
)

type RecurrencePattern string

const (
	RecurrenceDaily   RecurrencePattern = "DAILY"
	RecurrenceWeekly  RecurrencePattern = "WEEKLY"
	RecurrenceMonthly RecurrencePattern = "MONTHLY"
)

type LocationType string

const (
	LocationClinic       LocationType = "CLINIC"
	LocationHospital     LocationType = "HOSPITAL"
	LocationTelemedicine LocationType = "TELEMEDICINE"
	LocationHomeVisit    LocationType = "HOME_VISIT"
)

// Duration and capacity bounds for an availability window.
const (
	MinSlotDuration        = 15
	MaxSlotDuration        = 480
	MinBreakDuration       = 0
	MaxBreakDuration       = 120
	MinAppointmentsPerSlot = 1
	MaxAppointmentsPerSlot = 10
	MaxNotesLength         = 500

	DefaultSlotDuration = 30
	DefaultCurrency     = "USD"
)

type Provider struct {
	ID             uuid.UUID
	FirstName      string
	LastName       string
	Email          *string
	Specialization *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (p *Provider) FullName() string {
	return fullName(p.FirstName, p.LastName)
}

type Patient struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Patient) FullName() string {
	return fullName(p.FirstName, p.LastName)
}

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}

type Location struct {
	Type       LocationType `json:"type"`
	Address    string       `json:"address,omitempty"`
	RoomNumber string       `json:"room_number,omitempty"`
}

type Pricing struct {
	BaseFee           decimal.Decimal `json:"base_fee"`
	InsuranceAccepted bool            `json:"insurance_accepted"`
	Currency          string          `json:"currency"`
}

// AvailabilityWindow is a provider's declared block of bookable time on one date.
// Status and CurrentAppointments are administrative fields; booking a slot does
// not touch them.
type AvailabilityWindow struct {
	ID                     uuid.UUID
	ProviderID             uuid.UUID
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
	CurrentAppointments    int
	Location               *Location
	Pricing                *Pricing
	Notes                  *string
	SpecialRequirements    []string
	Status                 WindowStatus
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// At returns the absolute instant of a time of day on the window's date.
func (w *AvailabilityWindow) At(t TimeOfDay) time.Time {
	return t.On(w.Date)
}

type Slot struct {
	ID                   uuid.UUID
	AvailabilityWindowID uuid.UUID
	ProviderID           uuid.UUID
	StartTime            time.Time
	EndTime              time.Time
	Status               SlotStatus
	PatientID            *uuid.UUID
	AppointmentType      AppointmentType
	BookingReference     *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// SlotBooking carries the fields written by the AVAILABLE -> BOOKED transition.
type SlotBooking struct {
	PatientID        uuid.UUID
	AppointmentType  AppointmentType
	BookingReference string
}

type EventLog struct {
	ID        int64
	EventType string
	SubjectID *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}

// DateOf truncates t to midnight UTC of its calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const DateLayout = "2006-01-02"
