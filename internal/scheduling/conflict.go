package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AvailabilityLookup is the read the conflict checker needs.
type AvailabilityLookup interface {
	FindAvailabilityByProviderAndDate(ctx context.Context, providerID uuid.UUID, date time.Time) ([]AvailabilityWindow, error)
}

type ConflictChecker struct {
	lookup AvailabilityLookup
}

func NewConflictChecker(lookup AvailabilityLookup) *ConflictChecker {
	return &ConflictChecker{lookup: lookup}
}

// HasConflict reports whether [start, end) overlaps any window the provider
// already has on date. Windows that merely touch do not conflict.
func (c *ConflictChecker) HasConflict(ctx context.Context, providerID uuid.UUID, date time.Time, start, end TimeOfDay) (bool, error) {
	existing, err := c.lookup.FindAvailabilityByProviderAndDate(ctx, providerID, DateOf(date))
	if err != nil {
		return false, fmt.Errorf("load availability for conflict check: %w", err)
	}
	for _, w := range existing {
		if Overlaps(start, end, w.StartTime, w.EndTime) {
			return true, nil
		}
	}
	return false, nil
}

// Overlaps is the half-open interval test for [aStart, aEnd) and [bStart, bEnd).
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && aEnd > bStart
}
