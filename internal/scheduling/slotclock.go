package scheduling

import "time"

type SlotBounds struct {
	Start time.Time
	End   time.Time
}

// GenerateSlots carves w into consecutive slots of SlotDurationMinutes separated
// by BreakDurationMinutes, starting at w.StartTime. A trailing fragment shorter
// than one slot is discarded. The result depends only on w.
func GenerateSlots(w AvailabilityWindow) []SlotBounds {
	slotLen := w.SlotDurationMinutes
	if slotLen <= 0 || w.BreakDurationMinutes < 0 || w.EndTime <= w.StartTime {
		return nil
	}
	step := slotLen + w.BreakDurationMinutes

	var out []SlotBounds
	for cur := int(w.StartTime); cur+slotLen <= int(w.EndTime); cur += step {
		out = append(out, SlotBounds{
			Start: w.At(TimeOfDay(cur)),
			End:   w.At(TimeOfDay(cur + slotLen)),
		})
	}
	return out
}

// ExpectedSlotCount is the closed form of len(GenerateSlots(w)).
func ExpectedSlotCount(w AvailabilityWindow) int {
	if w.SlotDurationMinutes <= 0 || w.BreakDurationMinutes < 0 || w.EndTime <= w.StartTime {
		return 0
	}
	span := int(w.EndTime - w.StartTime)
	return (span + w.BreakDurationMinutes) / (w.SlotDurationMinutes + w.BreakDurationMinutes)
}
