package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

// Accepted appointment_date_time layouts. Values without an offset are read
// as UTC.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func createAvailabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseUUIDParam(w, r, "providerID", "invalid_provider_id")
		if !ok {
			return
		}

		var body CreateAvailabilityRequest
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		req, err := body.toDomain()
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		res, err := svc.CreateAvailability(r.Context(), providerID, req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, CreateAvailabilityResponse{
			AvailabilityID: res.AvailabilityID,
			SlotsCreated:   res.SlotsCreated,
			DateRange: DateRangeResponse{
				Start: res.DateRange.Start.Format(scheduling.DateLayout),
				End:   res.DateRange.End.Format(scheduling.DateLayout),
			},
			TotalAppointmentsAvailable: res.TotalAppointmentsAvailable,
		})
	}
}

func listAvailabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseUUIDParam(w, r, "providerID", "invalid_provider_id")
		if !ok {
			return
		}

		listing, err := svc.ListAvailability(r.Context(), providerID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		resp := AvailabilityListResponse{
			ProviderID:   listing.ProviderID,
			TotalWindows: listing.TotalWindows,
			Availability: make([]AvailabilityWindowResponse, 0, len(listing.Windows)),
			Summary: AvailabilitySummaryResponse{
				TotalAvailable: listing.Summary.TotalAvailable,
				TotalBooked:    listing.Summary.TotalBooked,
				TotalCancelled: listing.Summary.TotalCancelled,
				TotalBlocked:   listing.Summary.TotalBlocked,
			},
		}
		for _, ws := range listing.Windows {
			resp.Availability = append(resp.Availability, toWindowResponse(ws))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func bookAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body BookAppointmentRequest
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		providerID, err := uuid.Parse(body.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(body.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		at, err := parseDateTime(body.AppointmentDateTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_date_time", err.Error())
			return
		}

		rec, err := svc.Book(r.Context(), scheduling.BookingRequest{
			ProviderID:          providerID,
			PatientID:           patientID,
			AppointmentDateTime: at,
			AppointmentType:     body.AppointmentType,
			Notes:               body.Notes,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, BookingResponse{
			AppointmentID:       rec.AppointmentID,
			BookingReference:    rec.BookingReference,
			ProviderID:          rec.ProviderID,
			PatientID:           rec.PatientID,
			AppointmentDateTime: rec.AppointmentDateTime,
			AppointmentEndTime:  rec.AppointmentEndTime,
			AppointmentType:     string(rec.AppointmentType),
			Status:              string(rec.Status),
			Notes:               rec.Notes,
			ProviderName:        rec.ProviderName,
			PatientName:         rec.PatientName,
			Location:            rec.Location,
			Pricing:             rec.Pricing,
		})
	}
}

func providerAppointmentsHandler(svc AppointmentQuery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id", "invalid_provider_id")
		if !ok {
			return
		}

		list, err := svc.ForProvider(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentList(list))
	}
}

func patientAppointmentsHandler(svc AppointmentQuery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id", "invalid_patient_id")
		if !ok {
			return
		}

		list, err := svc.ForPatient(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentList(list))
	}
}

// handleServiceError maps a service error to its HTTP status. Domain errors
// carry their message to the client; anything else is logged and reported as
// an internal error.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scheduling.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, scheduling.KindOf(err), err.Error())
	case errors.Is(err, scheduling.ErrNotFound):
		writeError(w, http.StatusNotFound, scheduling.KindOf(err), err.Error())
	case errors.Is(err, scheduling.ErrConflict),
		errors.Is(err, scheduling.ErrNoAvailability),
		errors.Is(err, scheduling.ErrSlotNoLongerAvailable):
		writeError(w, http.StatusConflict, scheduling.KindOf(err), err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusServiceUnavailable, "busy", "provider schedule is being updated, please retry shortly")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (b CreateAvailabilityRequest) toDomain() (scheduling.AvailabilityRequest, error) {
	var req scheduling.AvailabilityRequest

	date, err := time.Parse(scheduling.DateLayout, strings.TrimSpace(b.Date))
	if err != nil {
		return req, fmt.Errorf("%w: date must be YYYY-MM-DD", scheduling.ErrInvalidInput)
	}
	start, err := scheduling.ParseTimeOfDay(b.StartTime)
	if err != nil {
		return req, err
	}
	end, err := scheduling.ParseTimeOfDay(b.EndTime)
	if err != nil {
		return req, err
	}

	req = scheduling.AvailabilityRequest{
		Date:                   date,
		StartTime:              start,
		EndTime:                end,
		Timezone:               b.Timezone,
		SlotDurationMinutes:    b.SlotDuration,
		BreakDurationMinutes:   b.BreakDuration,
		IsRecurring:            b.IsRecurring,
		MaxAppointmentsPerSlot: b.MaxAppointmentsPerSlot,
		Notes:                  b.Notes,
		SpecialRequirements:    b.SpecialRequirements,
	}

	if b.AppointmentType != "" {
		t, err := scheduling.ParseAppointmentType(b.AppointmentType)
		if err != nil {
			return req, err
		}
		req.AppointmentType = t
	}
	if b.RecurrencePattern != "" {
		p, err := scheduling.ParseRecurrencePattern(b.RecurrencePattern)
		if err != nil {
			return req, err
		}
		req.RecurrencePattern = &p
	}
	if b.RecurrenceEndDate != "" {
		d, err := time.Parse(scheduling.DateLayout, strings.TrimSpace(b.RecurrenceEndDate))
		if err != nil {
			return req, fmt.Errorf("%w: recurrence_end_date must be YYYY-MM-DD", scheduling.ErrInvalidInput)
		}
		req.RecurrenceEndDate = &d
	}
	if b.Location != nil {
		lt, err := scheduling.ParseLocationType(b.Location.Type)
		if err != nil {
			return req, err
		}
		req.Location = &scheduling.Location{
			Type:       lt,
			Address:    b.Location.Address,
			RoomNumber: b.Location.RoomNumber,
		}
	}
	if b.Pricing != nil {
		req.Pricing = &scheduling.Pricing{
			BaseFee:           b.Pricing.BaseFee,
			InsuranceAccepted: b.Pricing.InsuranceAccepted,
			Currency:          strings.ToUpper(strings.TrimSpace(b.Pricing.Currency)),
		}
	}

	return req, nil
}

func toWindowResponse(ws scheduling.WindowSummary) AvailabilityWindowResponse {
	resp := AvailabilityWindowResponse{
		ID:                     ws.ID,
		Date:                   ws.Date.Format(scheduling.DateLayout),
		StartTime:              ws.StartTime.String(),
		EndTime:                ws.EndTime.String(),
		Timezone:               ws.Timezone,
		SlotDuration:           ws.SlotDurationMinutes,
		BreakDuration:          ws.BreakDurationMinutes,
		IsRecurring:            ws.IsRecurring,
		AppointmentType:        string(ws.AppointmentType),
		Status:                 string(ws.Status),
		MaxAppointmentsPerSlot: ws.MaxAppointmentsPerSlot,
		CurrentAppointments:    ws.CurrentAppointments,
		AvailableAppointments:  ws.AvailableAppointments,
		Slots: SlotCountsResponse{
			Available: ws.Slots.Available,
			Booked:    ws.Slots.Booked,
			Cancelled: ws.Slots.Cancelled,
			Blocked:   ws.Slots.Blocked,
		},
		Location:            ws.Location,
		Pricing:             ws.Pricing,
		Notes:               ws.Notes,
		SpecialRequirements: ws.SpecialRequirements,
	}
	if ws.RecurrencePattern != nil {
		resp.RecurrencePattern = string(*ws.RecurrencePattern)
	}
	if ws.RecurrenceEndDate != nil {
		resp.RecurrenceEndDate = ws.RecurrenceEndDate.Format(scheduling.DateLayout)
	}
	if resp.SpecialRequirements == nil {
		resp.SpecialRequirements = []string{}
	}
	return resp
}

func toAppointmentList(list *scheduling.AppointmentList) AppointmentListResponse {
	resp := AppointmentListResponse{
		UserID:       list.UserID,
		UserType:     list.UserType,
		Appointments: make([]AppointmentResponse, 0, len(list.Appointments)),
		Summary: AppointmentSummaryResponse{
			Total:     list.Summary.Total,
			Upcoming:  list.Summary.Upcoming,
			Completed: list.Summary.Completed,
			Cancelled: list.Summary.Cancelled,
		},
	}
	for _, a := range list.Appointments {
		resp.Appointments = append(resp.Appointments, AppointmentResponse{
			AppointmentID:       a.AppointmentID,
			BookingReference:    a.BookingReference,
			ProviderID:          a.ProviderID,
			PatientID:           a.PatientID,
			AppointmentDateTime: a.AppointmentDateTime,
			AppointmentEndTime:  a.AppointmentEndTime,
			AppointmentType:     string(a.AppointmentType),
			Status:              string(a.Status),
			Upcoming:            a.Upcoming,
			ProviderName:        a.ProviderName,
			PatientName:         a.PatientName,
		})
	}
	return resp
}

func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("appointment_date_time is required")
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("appointment_date_time %q is not an ISO-8601 date-time", s)
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, code, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("could not parse JSON: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
