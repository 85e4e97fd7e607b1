package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

type AvailabilityService interface {
	CreateAvailability(ctx context.Context, providerID uuid.UUID, req scheduling.AvailabilityRequest) (*scheduling.AvailabilityResult, error)
	ListAvailability(ctx context.Context, providerID uuid.UUID) (*scheduling.AvailabilityListing, error)
}

type BookingService interface {
	Book(ctx context.Context, req scheduling.BookingRequest) (*scheduling.BookingRecord, error)
}

type AppointmentQuery interface {
	ForProvider(ctx context.Context, providerID uuid.UUID) (*scheduling.AppointmentList, error)
	ForPatient(ctx context.Context, patientID uuid.UUID) (*scheduling.AppointmentList, error)
}

type RouterConfig struct {
	Availability AvailabilityService
	Booking      BookingService
	Appointments AppointmentQuery
	Health       *HealthHandler
	Logger       zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/providers/{providerID}/availability", func(r chi.Router) {
			r.Post("/", createAvailabilityHandler(cfg.Availability))
			r.Get("/", listAvailabilityHandler(cfg.Availability))
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/book", bookAppointmentHandler(cfg.Booking))
			r.Get("/provider/{id}", providerAppointmentsHandler(cfg.Appointments))
			r.Get("/patient/{id}", patientAppointmentsHandler(cfg.Appointments))
		})
	})

	return r
}
