package scheduling

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	EventAvailabilityCreated = "AVAILABILITY_CREATED"
	EventAppointmentBooked   = "APPOINTMENT_BOOKED"
)

type eventSink interface {
	InsertEvent(ctx context.Context, ev EventLog) error
}

// recordEvent writes an event log row. Failures are logged and swallowed: the
// operation being recorded has already committed.
func recordEvent(ctx context.Context, sink eventSink, logger zerolog.Logger, subjectID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Warn().Err(err).Str("event", eventType).Msg("marshal event payload")
		data = nil
	}

	id := subjectID
	ev := EventLog{
		EventType: eventType,
		SubjectID: &id,
		Payload:   data,
		CreatedAt: time.Now(),
	}

	if err := sink.InsertEvent(ctx, ev); err != nil {
		logger.Warn().Err(err).Str("event", eventType).Stringer("subject_id", subjectID).Msg("insert event log")
	}
}
