package scheduling

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// memoryRepo is an in-memory Repository. mu plays the row lock behind the
// conditional update and dayMu plays the provider-day lock.
type memoryRepo struct {
	mu        sync.Mutex
	dayMu     sync.Mutex
	providers map[uuid.UUID]*Provider
	patients  map[uuid.UUID]*Patient
	windows   map[uuid.UUID]AvailabilityWindow
	slots     map[uuid.UUID]Slot
	events    []EventLog

	// hooks for failure and race injection
	saveSlotsErr  error
	eventErr      error
	beforeUpdate  func(slotID uuid.UUID)
	identityCalls int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		providers: make(map[uuid.UUID]*Provider),
		patients:  make(map[uuid.UUID]*Patient),
		windows:   make(map[uuid.UUID]AvailabilityWindow),
		slots:     make(map[uuid.UUID]Slot),
	}
}

func (r *memoryRepo) addProvider() *Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &Provider{ID: uuid.New(), FirstName: gofakeit.FirstName(), LastName: gofakeit.LastName()}
	r.providers[p.ID] = p
	return p
}

func (r *memoryRepo) addPatient() *Patient {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &Patient{ID: uuid.New(), FirstName: gofakeit.FirstName(), LastName: gofakeit.LastName()}
	r.patients[p.ID] = p
	return p
}

func (r *memoryRepo) GetProviderByID(_ context.Context, id uuid.UUID) (*Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identityCalls++
	p, ok := r.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memoryRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identityCalls++
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memoryRepo) FindAvailabilityByProviderAndDate(_ context.Context, providerID uuid.UUID, date time.Time) ([]AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.windowsLocked(func(w AvailabilityWindow) bool {
		return w.ProviderID == providerID && w.Date.Equal(DateOf(date))
	}), nil
}

func (r *memoryRepo) FindAvailabilityByProvider(_ context.Context, providerID uuid.UUID) ([]AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.windowsLocked(func(w AvailabilityWindow) bool { return w.ProviderID == providerID }), nil
}

func (r *memoryRepo) windowsLocked(match func(AvailabilityWindow) bool) []AvailabilityWindow {
	var out []AvailabilityWindow
	for _, w := range r.windows {
		if match(w) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

func (r *memoryRepo) GetAvailabilityByID(_ context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[id]
	if !ok {
		return nil, ErrWindowNotFound
	}
	return &w, nil
}

func (r *memoryRepo) SaveAvailability(_ context.Context, w *AvailabilityWindow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.windows {
		if existing.ProviderID == w.ProviderID && existing.Date.Equal(w.Date) && existing.StartTime == w.StartTime {
			return ErrConflict
		}
	}
	r.windows[w.ID] = *w
	return nil
}

func (r *memoryRepo) SaveSlots(_ context.Context, slots []Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveSlotsErr != nil {
		return r.saveSlotsErr
	}
	for _, s := range slots {
		r.slots[s.ID] = s
	}
	return nil
}

func (r *memoryRepo) FindSlotsByProviderAndStartAndStatus(_ context.Context, providerID uuid.UUID, start time.Time, status SlotStatus) ([]Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slotsLocked(func(s Slot) bool {
		return s.ProviderID == providerID && s.StartTime.Equal(start) && s.Status == status
	}), nil
}

func (r *memoryRepo) ConditionalUpdateSlotStatus(_ context.Context, slotID uuid.UUID, expected SlotStatus, booking SlotBooking) (int64, error) {
	if r.beforeUpdate != nil {
		r.beforeUpdate(slotID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotID]
	if !ok || s.Status != expected {
		return 0, nil
	}
	pid := booking.PatientID
	ref := booking.BookingReference
	s.Status = SlotBooked
	s.PatientID = &pid
	s.AppointmentType = booking.AppointmentType
	s.BookingReference = &ref
	s.UpdatedAt = time.Now()
	r.slots[slotID] = s
	return 1, nil
}

func (r *memoryRepo) FindSlotsByProvider(_ context.Context, providerID uuid.UUID) ([]Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slotsLocked(func(s Slot) bool { return s.ProviderID == providerID }), nil
}

func (r *memoryRepo) FindSlotsByPatient(_ context.Context, patientID uuid.UUID) ([]Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slotsLocked(func(s Slot) bool { return s.PatientID != nil && *s.PatientID == patientID }), nil
}

func (r *memoryRepo) slotsLocked(match func(Slot) bool) []Slot {
	var out []Slot
	for _, s := range r.slots {
		if match(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// WithProviderDay stages writes in a memoryTx and applies them only when fn
// succeeds. Provider-day calls are serialized by dayMu.
func (r *memoryRepo) WithProviderDay(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context, tx Store) error) error {
	r.dayMu.Lock()
	defer r.dayMu.Unlock()

	tx := &memoryTx{memoryRepo: r}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range tx.windows {
		r.windows[w.ID] = w
	}
	for _, s := range tx.slots {
		r.slots[s.ID] = s
	}
	return nil
}

func (r *memoryRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.eventErr != nil {
		return r.eventErr
	}
	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

func (r *memoryRepo) slotsForWindow(windowID uuid.UUID) []Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slotsLocked(func(s Slot) bool { return s.AvailabilityWindowID == windowID })
}

func (r *memoryRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}

// memoryTx buffers window and slot writes until the surrounding
// WithProviderDay commits. Reads see committed rows plus the buffered window.
type memoryTx struct {
	*memoryRepo
	windows []AvailabilityWindow
	slots   []Slot
}

func (tx *memoryTx) FindAvailabilityByProviderAndDate(ctx context.Context, providerID uuid.UUID, date time.Time) ([]AvailabilityWindow, error) {
	out, err := tx.memoryRepo.FindAvailabilityByProviderAndDate(ctx, providerID, date)
	if err != nil {
		return nil, err
	}
	for _, w := range tx.windows {
		if w.ProviderID == providerID && w.Date.Equal(DateOf(date)) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (tx *memoryTx) SaveAvailability(_ context.Context, w *AvailabilityWindow) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for _, existing := range tx.memoryRepo.windows {
		if existing.ProviderID == w.ProviderID && existing.Date.Equal(w.Date) && existing.StartTime == w.StartTime {
			return ErrConflict
		}
	}
	tx.windows = append(tx.windows, *w)
	return nil
}

func (tx *memoryTx) SaveSlots(_ context.Context, slots []Slot) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.saveSlotsErr != nil {
		return tx.saveSlotsErr
	}
	tx.slots = append(tx.slots, slots...)
	return nil
}

// recordingLocker counts WithLock calls and serializes them.
type recordingLocker struct {
	mu    sync.Mutex
	keys  []string
	err   error
	inner sync.Mutex
}

func (l *recordingLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	l.keys = append(l.keys, key)
	l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.inner.Lock()
	defer l.inner.Unlock()
	return fn(ctx)
}

var errBoom = errors.New("boom")
