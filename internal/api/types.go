package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

type LocationPayload struct {
	Type       string `json:"type"`
	Address    string `json:"address,omitempty"`
	RoomNumber string `json:"room_number,omitempty"`
}

type PricingPayload struct {
	BaseFee           decimal.Decimal `json:"base_fee"`
	InsuranceAccepted bool            `json:"insurance_accepted"`
	Currency          string          `json:"currency,omitempty"`
}

type CreateAvailabilityRequest struct {
	Date                   string           `json:"date"`
	StartTime              string           `json:"start_time"`
	EndTime                string           `json:"end_time"`
	Timezone               string           `json:"timezone"`
	SlotDuration           int              `json:"slot_duration"`
	BreakDuration          int              `json:"break_duration"`
	IsRecurring            bool             `json:"is_recurring"`
	RecurrencePattern      string           `json:"recurrence_pattern,omitempty"`
	RecurrenceEndDate      string           `json:"recurrence_end_date,omitempty"`
	AppointmentType        string           `json:"appointment_type,omitempty"`
	MaxAppointmentsPerSlot int              `json:"max_appointments_per_slot,omitempty"`
	Location               *LocationPayload `json:"location,omitempty"`
	Pricing                *PricingPayload  `json:"pricing,omitempty"`
	Notes                  *string          `json:"notes,omitempty"`
	SpecialRequirements    []string         `json:"special_requirements,omitempty"`
}

type DateRangeResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type CreateAvailabilityResponse struct {
	AvailabilityID             uuid.UUID         `json:"availability_id"`
	SlotsCreated               int               `json:"slots_created"`
	DateRange                  DateRangeResponse `json:"date_range"`
	TotalAppointmentsAvailable int               `json:"total_appointments_available"`
}

type SlotCountsResponse struct {
	Available int `json:"available"`
	Booked    int `json:"booked"`
	Cancelled int `json:"cancelled"`
	Blocked   int `json:"blocked"`
}

type AvailabilityWindowResponse struct {
	ID                     uuid.UUID            `json:"id"`
	Date                   string               `json:"date"`
	StartTime              string               `json:"start_time"`
	EndTime                string               `json:"end_time"`
	Timezone               string               `json:"timezone"`
	SlotDuration           int                  `json:"slot_duration"`
	BreakDuration          int                  `json:"break_duration"`
	IsRecurring            bool                 `json:"is_recurring"`
	RecurrencePattern      string               `json:"recurrence_pattern,omitempty"`
	RecurrenceEndDate      string               `json:"recurrence_end_date,omitempty"`
	AppointmentType        string               `json:"appointment_type"`
	Status                 string               `json:"status"`
	MaxAppointmentsPerSlot int                  `json:"max_appointments_per_slot"`
	CurrentAppointments    int                  `json:"current_appointments"`
	AvailableAppointments  int                  `json:"available_appointments"`
	Slots                  SlotCountsResponse   `json:"slots"`
	Location               *scheduling.Location `json:"location,omitempty"`
	Pricing                *scheduling.Pricing  `json:"pricing,omitempty"`
	Notes                  *string              `json:"notes,omitempty"`
	SpecialRequirements    []string             `json:"special_requirements"`
}

type AvailabilitySummaryResponse struct {
	TotalAvailable int `json:"total_available"`
	TotalBooked    int `json:"total_booked"`
	TotalCancelled int `json:"total_cancelled"`
	TotalBlocked   int `json:"total_blocked"`
}

type AvailabilityListResponse struct {
	ProviderID   uuid.UUID                    `json:"provider_id"`
	TotalWindows int                          `json:"total_windows"`
	Availability []AvailabilityWindowResponse `json:"availability"`
	Summary      AvailabilitySummaryResponse  `json:"summary"`
}

type BookAppointmentRequest struct {
	ProviderID          string `json:"provider_id"`
	PatientID           string `json:"patient_id"`
	AppointmentDateTime string `json:"appointment_date_time"`
	AppointmentType     string `json:"appointment_type"`
	Notes               string `json:"notes,omitempty"`
}

type BookingResponse struct {
	AppointmentID       uuid.UUID            `json:"appointment_id"`
	BookingReference    string               `json:"booking_reference"`
	ProviderID          uuid.UUID            `json:"provider_id"`
	PatientID           uuid.UUID            `json:"patient_id"`
	AppointmentDateTime time.Time            `json:"appointment_date_time"`
	AppointmentEndTime  time.Time            `json:"appointment_end_time"`
	AppointmentType     string               `json:"appointment_type"`
	Status              string               `json:"status"`
	Notes               string               `json:"notes,omitempty"`
	ProviderName        string               `json:"provider_name,omitempty"`
	PatientName         string               `json:"patient_name,omitempty"`
	Location            *scheduling.Location `json:"location,omitempty"`
	Pricing             *scheduling.Pricing  `json:"pricing,omitempty"`
}

type AppointmentResponse struct {
	AppointmentID       uuid.UUID  `json:"appointment_id"`
	BookingReference    string     `json:"booking_reference"`
	ProviderID          uuid.UUID  `json:"provider_id"`
	PatientID           *uuid.UUID `json:"patient_id,omitempty"`
	AppointmentDateTime time.Time  `json:"appointment_date_time"`
	AppointmentEndTime  time.Time  `json:"appointment_end_time"`
	AppointmentType     string     `json:"appointment_type"`
	Status              string     `json:"status"`
	Upcoming            bool       `json:"upcoming"`
	ProviderName        string     `json:"provider_name,omitempty"`
	PatientName         string     `json:"patient_name,omitempty"`
}

type AppointmentSummaryResponse struct {
	Total     int `json:"total"`
	Upcoming  int `json:"upcoming"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

type AppointmentListResponse struct {
	UserID       uuid.UUID                  `json:"user_id"`
	UserType     string                     `json:"user_type"`
	Appointments []AppointmentResponse      `json:"appointments"`
	Summary      AppointmentSummaryResponse `json:"summary"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
