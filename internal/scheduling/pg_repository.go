package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const pgUniqueViolation = "23505"

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type PgRepository struct {
	pool *pgxpool.Pool
	q    queryable
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool, q: pool}
}

const availabilityCols = `id, provider_id, date, start_time, end_time, timezone,
	slot_duration, break_duration, is_recurring, recurrence_pattern, recurrence_end_date,
	appointment_type, max_appointments_per_slot, current_appointments,
	location_type, location_address, location_room_number,
	pricing_base_fee::text, pricing_insurance_accepted, pricing_currency,
	notes, special_requirements, status, created_at, updated_at`

const slotCols = `id, availability_id, provider_id, slot_start_time, slot_end_time, status,
	patient_id, appointment_type, booking_reference, created_at, updated_at`

// Helpers

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Specialization, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanAvailability(row pgx.Row) (*AvailabilityWindow, error) {
	var (
		w            AvailabilityWindow
		start, end   pgtype.Time
		pattern      *string
		locType      *string
		locAddress   *string
		locRoom      *string
		baseFee      *string
		insurance    *bool
		currency     *string
		requirements []string
	)

	err := row.Scan(
		&w.ID, &w.ProviderID, &w.Date, &start, &end, &w.Timezone,
		&w.SlotDurationMinutes, &w.BreakDurationMinutes, &w.IsRecurring, &pattern, &w.RecurrenceEndDate,
		&w.AppointmentType, &w.MaxAppointmentsPerSlot, &w.CurrentAppointments,
		&locType, &locAddress, &locRoom,
		&baseFee, &insurance, &currency,
		&w.Notes, &requirements, &w.Status, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, err
	}

	w.Date = DateOf(w.Date)
	w.StartTime = fromPgTime(start)
	w.EndTime = fromPgTime(end)
	if pattern != nil {
		p := RecurrencePattern(*pattern)
		w.RecurrencePattern = &p
	}
	if w.RecurrenceEndDate != nil {
		d := DateOf(*w.RecurrenceEndDate)
		w.RecurrenceEndDate = &d
	}
	if locType != nil {
		w.Location = &Location{Type: LocationType(*locType)}
		if locAddress != nil {
			w.Location.Address = *locAddress
		}
		if locRoom != nil {
			w.Location.RoomNumber = *locRoom
		}
	}
	if baseFee != nil || currency != nil {
		w.Pricing = &Pricing{Currency: DefaultCurrency}
		if baseFee != nil {
			fee, err := decimal.NewFromString(*baseFee)
			if err != nil {
				return nil, fmt.Errorf("parse base fee %q: %w", *baseFee, err)
			}
			w.Pricing.BaseFee = fee
		}
		if insurance != nil {
			w.Pricing.InsuranceAccepted = *insurance
		}
		if currency != nil {
			w.Pricing.Currency = *currency
		}
	}
	w.SpecialRequirements = requirements
	return &w, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	err := row.Scan(
		&s.ID, &s.AvailabilityWindowID, &s.ProviderID, &s.StartTime, &s.EndTime, &s.Status,
		&s.PatientID, &s.AppointmentType, &s.BookingReference, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.StartTime = s.StartTime.UTC()
	s.EndTime = s.EndTime.UTC()
	return &s, nil
}

func collectSlots(rows pgx.Rows) ([]Slot, error) {
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func collectWindows(rows pgx.Rows) ([]AvailabilityWindow, error) {
	defer rows.Close()

	var result []AvailabilityWindow
	for rows.Next() {
		w, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func toPgTime(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * int64(time.Minute/time.Microsecond), Valid: true}
}

func fromPgTime(t pgtype.Time) TimeOfDay {
	return TimeOfDay(t.Microseconds / int64(time.Minute/time.Microsecond))
}

// Identity

func (r *PgRepository) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, specialization, created_at, updated_at
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

// Availability

func (r *PgRepository) FindAvailabilityByProviderAndDate(ctx context.Context, providerID uuid.UUID, date time.Time) ([]AvailabilityWindow, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+availabilityCols+`
		FROM provider_availability
		WHERE provider_id = $1 AND date = $2
		ORDER BY start_time
	`, providerID, DateOf(date))
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}

func (r *PgRepository) FindAvailabilityByProvider(ctx context.Context, providerID uuid.UUID) ([]AvailabilityWindow, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+availabilityCols+`
		FROM provider_availability
		WHERE provider_id = $1
		ORDER BY date, start_time
	`, providerID)
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}

func (r *PgRepository) GetAvailabilityByID(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+availabilityCols+`
		FROM provider_availability
		WHERE id = $1
	`, id)
	return scanAvailability(row)
}

func (r *PgRepository) SaveAvailability(ctx context.Context, w *AvailabilityWindow) error {
	var (
		pattern                      *string
		locType, locAddress, locRoom *string
		baseFee, currency            *string
		insurance                    *bool
	)
	if w.RecurrencePattern != nil {
		p := string(*w.RecurrencePattern)
		pattern = &p
	}
	if w.Location != nil {
		t := string(w.Location.Type)
		locType = &t
		locAddress = nullableString(w.Location.Address)
		locRoom = nullableString(w.Location.RoomNumber)
	}
	if w.Pricing != nil {
		fee := w.Pricing.BaseFee.String()
		baseFee = &fee
		ins := w.Pricing.InsuranceAccepted
		insurance = &ins
		currency = nullableString(w.Pricing.Currency)
	}
	requirements := w.SpecialRequirements
	if requirements == nil {
		requirements = []string{}
	}

	err := r.q.QueryRow(ctx, `
		INSERT INTO provider_availability (
			id, provider_id, date, start_time, end_time, timezone,
			slot_duration, break_duration, is_recurring, recurrence_pattern, recurrence_end_date,
			appointment_type, max_appointments_per_slot, current_appointments,
			location_type, location_address, location_room_number,
			pricing_base_fee, pricing_insurance_accepted, pricing_currency,
			notes, special_requirements, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18::numeric, $19, $20, $21, $22, $23, $24, $24)
		RETURNING created_at, updated_at
	`,
		w.ID, w.ProviderID, DateOf(w.Date), toPgTime(w.StartTime), toPgTime(w.EndTime), w.Timezone,
		w.SlotDurationMinutes, w.BreakDurationMinutes, w.IsRecurring, pattern, w.RecurrenceEndDate,
		w.AppointmentType, w.MaxAppointmentsPerSlot, w.CurrentAppointments,
		locType, locAddress, locRoom,
		baseFee, insurance, currency,
		w.Notes, requirements, w.Status, nonZeroTime(w.CreatedAt),
	).Scan(&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert availability: %w", err)
	}
	return nil
}

// Slots

func (r *PgRepository) SaveSlots(ctx context.Context, slots []Slot) error {
	if len(slots) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range slots {
		batch.Queue(`
			INSERT INTO appointment_slots (
				id, availability_id, provider_id, slot_start_time, slot_end_time, status,
				patient_id, appointment_type, booking_reference, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		`, s.ID, s.AvailabilityWindowID, s.ProviderID, s.StartTime, s.EndTime, s.Status,
			s.PatientID, s.AppointmentType, s.BookingReference, nonZeroTime(s.CreatedAt))
	}

	br := r.q.SendBatch(ctx, batch)
	defer br.Close()

	for i := range slots {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert slot %d of %d: %w", i+1, len(slots), err)
		}
	}
	return br.Close()
}

func (r *PgRepository) FindSlotsByProviderAndStartAndStatus(ctx context.Context, providerID uuid.UUID, start time.Time, status SlotStatus) ([]Slot, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+slotCols+`
		FROM appointment_slots
		WHERE provider_id = $1
		  AND slot_start_time = $2
		  AND status = $3
		ORDER BY created_at, id
	`, providerID, start.UTC(), status)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *PgRepository) ConditionalUpdateSlotStatus(ctx context.Context, slotID uuid.UUID, expected SlotStatus, booking SlotBooking) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE appointment_slots
		SET status = $3,
		    patient_id = $4,
		    appointment_type = $5,
		    booking_reference = $6,
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
	`, slotID, expected, SlotBooked, booking.PatientID, booking.AppointmentType, booking.BookingReference)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) FindSlotsByProvider(ctx context.Context, providerID uuid.UUID) ([]Slot, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+slotCols+`
		FROM appointment_slots
		WHERE provider_id = $1
		ORDER BY slot_start_time, id
	`, providerID)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *PgRepository) FindSlotsByPatient(ctx context.Context, patientID uuid.UUID) ([]Slot, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+slotCols+`
		FROM appointment_slots
		WHERE patient_id = $1
		ORDER BY slot_start_time, id
	`, patientID)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

// Transactions

func (r *PgRepository) WithProviderDay(ctx context.Context, providerID uuid.UUID, date time.Time, fn func(ctx context.Context, tx Store) error) error {
	if r.pool == nil {
		return errors.New("provider-day transaction requires a pool-backed repository")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin provider-day tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, providerDayKey(providerID, date)); err != nil {
		return fmt.Errorf("lock provider day: %w", err)
	}

	if err := fn(ctx, &PgRepository{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit provider-day tx: %w", err)
	}
	return nil
}

// Event logging

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO event_logs (event_type, subject_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.SubjectID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nonZeroTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
