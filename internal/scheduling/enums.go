package scheduling

import "strings"

// normalizeEnum upper-cases s and folds spaces and dashes to underscores so
// "follow-up" and "Follow Up" both read as FOLLOW_UP.
func normalizeEnum(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

func ParseAppointmentType(s string) (AppointmentType, error) {
	switch v := AppointmentType(normalizeEnum(s)); v {
	case TypeConsultation, TypeFollowUp, TypeEmergency, TypeTelemedicine:
		return v, nil
	}
	return "", invalidf("unknown appointment type %q", s)
}

func ParseRecurrencePattern(s string) (RecurrencePattern, error) {
	switch v := RecurrencePattern(normalizeEnum(s)); v {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return v, nil
	}
	return "", invalidf("unknown recurrence pattern %q", s)
}

func ParseLocationType(s string) (LocationType, error) {
	switch v := LocationType(normalizeEnum(s)); v {
	case LocationClinic, LocationHospital, LocationTelemedicine, LocationHomeVisit:
		return v, nil
	}
	return "", invalidf("unknown location type %q", s)
}

func ParseSlotStatus(s string) (SlotStatus, error) {
	switch v := SlotStatus(normalizeEnum(s)); v {
	case SlotAvailable, SlotBooked, SlotCancelled, SlotBlocked:
		return v, nil
	}
	return "", invalidf("unknown slot status %q", s)
}

func ParseWindowStatus(s string) (WindowStatus, error) {
	switch v := WindowStatus(normalizeEnum(s)); v {
	case WindowAvailable, WindowBooked, WindowCancelled, WindowBlocked, WindowMaintenance:
		return v, nil
	}
	return "", invalidf("unknown availability status %q", s)
}
