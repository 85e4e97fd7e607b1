package scheduling

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by the services wraps exactly one of these.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("time slot conflicts with existing availability")
	ErrNoAvailability        = errors.New("no available slots found for the requested time")
	ErrSlotNoLongerAvailable = errors.New("selected slot is no longer available")
)

var (
	ErrInvalidRange       = &kindError{kind: ErrInvalidInput, msg: "end time must be after start time"}
	ErrNotInFuture        = &kindError{kind: ErrInvalidInput, msg: "appointment time must be in the future"}
	ErrProviderNotFound   = &kindError{kind: ErrNotFound, msg: "provider not found"}
	ErrPatientNotFound    = &kindError{kind: ErrNotFound, msg: "patient not found"}
	ErrAvailabilityAbsent = &kindError{kind: ErrNotFound, msg: "no availability found for provider"}
	ErrWindowNotFound     = &kindError{kind: ErrNotFound, msg: "availability window not found"}
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func invalidf(format string, args ...any) error {
	return &kindError{kind: ErrInvalidInput, msg: fmt.Sprintf(format, args...)}
}

// KindOf names the error kind carried by err, or "" when err is not a domain error.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNoAvailability):
		return "no_availability"
	case errors.Is(err, ErrSlotNoLongerAvailable):
		return "slot_no_longer_available"
	}
	return ""
}
