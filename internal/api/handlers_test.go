package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

type stubAvailability struct {
	createErr  error
	listErr    error
	gotReq     scheduling.AvailabilityRequest
	gotID      uuid.UUID
	listResult *scheduling.AvailabilityListing
}

func (s *stubAvailability) CreateAvailability(_ context.Context, providerID uuid.UUID, req scheduling.AvailabilityRequest) (*scheduling.AvailabilityResult, error) {
	s.gotID = providerID
	s.gotReq = req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &scheduling.AvailabilityResult{
		AvailabilityID:             uuid.New(),
		SlotsCreated:               2,
		DateRange:                  scheduling.DateRange{Start: req.Date, End: req.Date},
		TotalAppointmentsAvailable: 2,
	}, nil
}

func (s *stubAvailability) ListAvailability(_ context.Context, providerID uuid.UUID) (*scheduling.AvailabilityListing, error) {
	s.gotID = providerID
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listResult, nil
}

type stubBooking struct {
	err    error
	gotReq scheduling.BookingRequest
}

func (s *stubBooking) Book(_ context.Context, req scheduling.BookingRequest) (*scheduling.BookingRecord, error) {
	s.gotReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &scheduling.BookingRecord{
		AppointmentID:       uuid.New(),
		BookingReference:    "BK1700000000000ABCDEF12",
		ProviderID:          req.ProviderID,
		PatientID:           req.PatientID,
		AppointmentDateTime: req.AppointmentDateTime,
		AppointmentEndTime:  req.AppointmentDateTime.Add(30 * time.Minute),
		AppointmentType:     scheduling.TypeConsultation,
		Status:              scheduling.SlotBooked,
		ProviderName:        "Jane Doe",
		PatientName:         "John Roe",
		Location:            &scheduling.Location{Type: scheduling.LocationClinic, Address: "1 Main St"},
	}, nil
}

type stubQuery struct {
	err error
}

func (s *stubQuery) ForProvider(_ context.Context, id uuid.UUID) (*scheduling.AppointmentList, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &scheduling.AppointmentList{
		UserID:       id,
		UserType:     scheduling.UserTypeProvider,
		Appointments: []scheduling.Appointment{{AppointmentID: uuid.New(), ProviderID: id, Status: scheduling.SlotBooked, Upcoming: true}},
		Summary:      scheduling.AppointmentSummary{Total: 1, Upcoming: 1},
	}, nil
}

func (s *stubQuery) ForPatient(_ context.Context, id uuid.UUID) (*scheduling.AppointmentList, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &scheduling.AppointmentList{UserID: id, UserType: scheduling.UserTypePatient, Appointments: []scheduling.Appointment{}}, nil
}

func newTestRouter(av *stubAvailability, bk *stubBooking, q *stubQuery) http.Handler {
	return NewRouter(RouterConfig{
		Availability: av,
		Booking:      bk,
		Appointments: q,
		Health: NewHealthHandler(
			PingFunc(func(context.Context) error { return nil }),
			nil, "test", "v0",
		),
		Logger: zerolog.Nop(),
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func TestCreateAvailability_Success(t *testing.T) {
	av := &stubAvailability{}
	h := newTestRouter(av, &stubBooking{}, &stubQuery{})
	providerID := uuid.New()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/providers/"+providerID.String()+"/availability", map[string]any{
		"date":               "2030-02-15",
		"start_time":         "09:00",
		"end_time":           "10:00",
		"timezone":           "America/New_York",
		"slot_duration":      30,
		"break_duration":     0,
		"recurrence_pattern": "weekly",
		"appointment_type":   "follow-up",
		"location":           map[string]any{"type": "clinic", "address": "1 Main St", "room_number": "101"},
		"pricing":            map[string]any{"base_fee": "150.00", "insurance_accepted": true},
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if av.gotID != providerID {
		t.Errorf("provider id = %s, want %s", av.gotID, providerID)
	}
	if av.gotReq.StartTime != scheduling.MustTimeOfDay("09:00") || av.gotReq.EndTime != scheduling.MustTimeOfDay("10:00") {
		t.Errorf("times = %s-%s", av.gotReq.StartTime, av.gotReq.EndTime)
	}
	if av.gotReq.AppointmentType != scheduling.TypeFollowUp {
		t.Errorf("appointment type = %q", av.gotReq.AppointmentType)
	}
	if av.gotReq.RecurrencePattern == nil || *av.gotReq.RecurrencePattern != scheduling.RecurrenceWeekly {
		t.Errorf("recurrence pattern = %v", av.gotReq.RecurrencePattern)
	}
	if av.gotReq.Location == nil || av.gotReq.Location.Type != scheduling.LocationClinic {
		t.Errorf("location = %+v", av.gotReq.Location)
	}
	if av.gotReq.Pricing == nil || !av.gotReq.Pricing.BaseFee.Equal(decimal.RequireFromString("150")) {
		t.Errorf("pricing = %+v", av.gotReq.Pricing)
	}

	var resp CreateAvailabilityResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SlotsCreated != 2 || resp.DateRange.Start != "2030-02-15" || resp.DateRange.End != "2030-02-15" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestCreateAvailability_BadInput(t *testing.T) {
	h := newTestRouter(&stubAvailability{}, &stubBooking{}, &stubQuery{})
	path := "/api/v1/providers/" + uuid.NewString() + "/availability"

	tests := []struct {
		name string
		path string
		body map[string]any
		code string
	}{
		{name: "bad provider id", path: "/api/v1/providers/nope/availability", body: map[string]any{}, code: "invalid_provider_id"},
		{name: "bad date", path: path, body: map[string]any{"date": "15/02/2030", "start_time": "09:00", "end_time": "10:00"}, code: "invalid_input"},
		{name: "bad time", path: path, body: map[string]any{"date": "2030-02-15", "start_time": "9am", "end_time": "10:00"}, code: "invalid_input"},
		{name: "unknown type", path: path, body: map[string]any{"date": "2030-02-15", "start_time": "09:00", "end_time": "10:00", "appointment_type": "surgery"}, code: "invalid_input"},
		{name: "unknown field", path: path, body: map[string]any{"date": "2030-02-15", "surprise": true}, code: "invalid_request_body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			if got := decodeError(t, rec).Error; got != tt.code {
				t.Errorf("error code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid range", err: scheduling.ErrInvalidRange, status: http.StatusBadRequest, code: "invalid_input"},
		{name: "provider not found", err: scheduling.ErrProviderNotFound, status: http.StatusNotFound, code: "not_found"},
		{name: "conflict", err: scheduling.ErrConflict, status: http.StatusConflict, code: "conflict"},
		{name: "no availability", err: scheduling.ErrNoAvailability, status: http.StatusConflict, code: "no_availability"},
		{name: "slot taken", err: scheduling.ErrSlotNoLongerAvailable, status: http.StatusConflict, code: "slot_no_longer_available"},
		{name: "lock busy", err: fmt.Errorf("%w: lock:availability:x", redisclient.ErrLockNotAcquired), status: http.StatusServiceUnavailable, code: "busy"},
		{name: "infrastructure", err: errors.New("connection reset"), status: http.StatusInternalServerError, code: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&stubAvailability{}, &stubBooking{err: tt.err}, &stubQuery{})
			rec := doJSON(t, h, http.MethodPost, "/api/v1/appointments/book", map[string]any{
				"provider_id":           uuid.NewString(),
				"patient_id":            uuid.NewString(),
				"appointment_date_time": "2030-02-15T09:00:00",
				"appointment_type":      "consultation",
			})
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			resp := decodeError(t, rec)
			if resp.Error != tt.code {
				t.Errorf("error code = %q, want %q", resp.Error, tt.code)
			}
			if tt.status == http.StatusInternalServerError && resp.Details == tt.err.Error() {
				t.Error("internal error details leaked to client")
			}
		})
	}
}

func TestBookAppointment_Success(t *testing.T) {
	bk := &stubBooking{}
	h := newTestRouter(&stubAvailability{}, bk, &stubQuery{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/appointments/book", map[string]any{
		"provider_id":           uuid.NewString(),
		"patient_id":            uuid.NewString(),
		"appointment_date_time": "2030-02-15T09:00:00Z",
		"appointment_type":      "CONSULTATION",
		"notes":                 "first visit",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	want := time.Date(2030, 2, 15, 9, 0, 0, 0, time.UTC)
	if !bk.gotReq.AppointmentDateTime.Equal(want) {
		t.Errorf("appointment time = %s, want %s", bk.gotReq.AppointmentDateTime, want)
	}
	if bk.gotReq.Notes != "first visit" {
		t.Errorf("notes = %q", bk.gotReq.Notes)
	}

	var resp BookingResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "BOOKED" || resp.BookingReference == "" || resp.Location == nil {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestBookAppointment_BadIDs(t *testing.T) {
	h := newTestRouter(&stubAvailability{}, &stubBooking{}, &stubQuery{})

	tests := []struct {
		name string
		body map[string]any
		code string
	}{
		{name: "provider", body: map[string]any{"provider_id": "x", "patient_id": uuid.NewString(), "appointment_date_time": "2030-02-15T09:00:00"}, code: "invalid_provider_id"},
		{name: "patient", body: map[string]any{"provider_id": uuid.NewString(), "patient_id": "x", "appointment_date_time": "2030-02-15T09:00:00"}, code: "invalid_patient_id"},
		{name: "time", body: map[string]any{"provider_id": uuid.NewString(), "patient_id": uuid.NewString(), "appointment_date_time": "tomorrow"}, code: "invalid_appointment_date_time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/v1/appointments/book", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			if got := decodeError(t, rec).Error; got != tt.code {
				t.Errorf("error code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestListAvailability(t *testing.T) {
	providerID := uuid.New()
	date := time.Date(2030, 2, 15, 0, 0, 0, 0, time.UTC)
	av := &stubAvailability{listResult: &scheduling.AvailabilityListing{
		ProviderID:   providerID,
		TotalWindows: 1,
		Windows: []scheduling.WindowSummary{{
			AvailabilityWindow: scheduling.AvailabilityWindow{
				ID:                     uuid.New(),
				ProviderID:             providerID,
				Date:                   date,
				StartTime:              scheduling.MustTimeOfDay("09:00"),
				EndTime:                scheduling.MustTimeOfDay("10:00"),
				Timezone:               "UTC",
				SlotDurationMinutes:    30,
				AppointmentType:        scheduling.TypeConsultation,
				MaxAppointmentsPerSlot: 3,
				CurrentAppointments:    1,
				Status:                 scheduling.WindowAvailable,
			},
			AvailableAppointments: 2,
			Slots:                 scheduling.SlotCounts{Available: 1, Booked: 1},
		}},
		Summary: scheduling.StatusSummary{TotalAvailable: 1},
	}}
	h := newTestRouter(av, &stubBooking{}, &stubQuery{})

	rec := doJSON(t, h, http.MethodGet, "/api/v1/providers/"+providerID.String()+"/availability", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp AvailabilityListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalWindows != 1 || len(resp.Availability) != 1 {
		t.Fatalf("unexpected listing: %+v", resp)
	}
	w := resp.Availability[0]
	if w.Date != "2030-02-15" || w.StartTime != "09:00" || w.EndTime != "10:00" {
		t.Errorf("window = %+v", w)
	}
	if w.AvailableAppointments != 2 || w.Slots.Booked != 1 || w.SpecialRequirements == nil {
		t.Errorf("window counts = %+v", w)
	}
	if resp.Summary.TotalAvailable != 1 {
		t.Errorf("summary = %+v", resp.Summary)
	}
}

func TestListAvailability_NotFound(t *testing.T) {
	av := &stubAvailability{listErr: scheduling.ErrAvailabilityAbsent}
	h := newTestRouter(av, &stubBooking{}, &stubQuery{})

	rec := doJSON(t, h, http.MethodGet, "/api/v1/providers/"+uuid.NewString()+"/availability", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAppointmentQueries(t *testing.T) {
	h := newTestRouter(&stubAvailability{}, &stubBooking{}, &stubQuery{})
	id := uuid.New()

	rec := doJSON(t, h, http.MethodGet, "/api/v1/appointments/provider/"+id.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("provider status = %d", rec.Code)
	}
	var resp AppointmentListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UserID != id || resp.UserType != "provider" || resp.Summary.Total != 1 || len(resp.Appointments) != 1 {
		t.Errorf("unexpected provider list: %+v", resp)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/appointments/patient/"+id.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("patient status = %d", rec.Code)
	}
	resp = AppointmentListResponse{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UserType != "patient" || resp.Appointments == nil {
		t.Errorf("unexpected patient list: %+v", resp)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/appointments/patient/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", rec.Code)
	}
}

func TestParseDateTime(t *testing.T) {
	want := time.Date(2030, 2, 15, 9, 30, 0, 0, time.UTC)
	for _, in := range []string{"2030-02-15T09:30:00Z", "2030-02-15T09:30:00", "2030-02-15T09:30", "2030-02-15 09:30:00", "2030-02-15T11:30:00+02:00"} {
		got, err := parseDateTime(in)
		if err != nil {
			t.Errorf("parseDateTime(%q) error: %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("parseDateTime(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := parseDateTime(""); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestHealth(t *testing.T) {
	down := PingFunc(func(context.Context) error { return errors.New("down") })
	up := PingFunc(func(context.Context) error { return nil })

	tests := []struct {
		name     string
		postgres Pinger
		redis    Pinger
		status   int
		overall  string
	}{
		{name: "all up", postgres: up, redis: up, status: http.StatusOK, overall: "ok"},
		{name: "redis disabled", postgres: up, redis: nil, status: http.StatusOK, overall: "ok"},
		{name: "redis down", postgres: up, redis: down, status: http.StatusOK, overall: "degraded"},
		{name: "postgres down", postgres: down, redis: up, status: http.StatusServiceUnavailable, overall: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.postgres, tt.redis, "test", "v0")
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var resp ReadinessResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.overall {
				t.Errorf("overall = %q, want %q", resp.Status, tt.overall)
			}
		})
	}
}
