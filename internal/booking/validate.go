package booking

import (
	"time"
)

// Validate checks a requested [startUTC, endUTC) interval against the
// schedule's windows and returns the window the interval belongs to. Checks
// run in a fixed order and the first failure wins. Pure; no side effects.
func Validate(loc *time.Location, windows []AvailabilityWindow, startUTC, endUTC, nowUTC time.Time) (*AvailabilityWindow, error) {
	if !endUTC.After(startUTC) {
		return nil, ErrInvalidRange
	}
	if startUTC.Before(nowUTC) {
		return nil, ErrPastSlot
	}

	weekday, startMinute := localParts(startUTC, loc)
	_, endMinute := localParts(endUTC, loc)

	// An end falling exactly on local midnight belongs to the starting day
	// as minute 1440: a 23:00–24:00 window produces a slot ending there and
	// it must validate like any other.
	if endMinute == 0 {
		endMinute = 24 * 60
	}

	// An interval crossing local midnight shows end <= start here; no window
	// can span days, so reject it outright.
	if endMinute <= startMinute {
		return nil, ErrInvalidLocalRange
	}

	var matched *AvailabilityWindow
	for i := range windows {
		w := &windows[i]
		if w.Weekday != weekday {
			continue
		}
		if w.StartMinute <= startMinute && endMinute <= w.EndMinute {
			matched = w
			break
		}
	}
	if matched == nil {
		return nil, ErrOutsideAvailability
	}

	duration := endUTC.Sub(startUTC)
	if duration%time.Minute != 0 || int(duration/time.Minute) != matched.SlotMinutes {
		return nil, ErrInvalidSlotDuration
	}

	// The slot must sit on a generator-produced boundary, not an arbitrary
	// sub-interval of the window.
	if (startMinute-matched.StartMinute)%matched.SlotMinutes != 0 {
		return nil, ErrInvalidSlotAlignment
	}

	return matched, nil
}

// ValidateWindows checks an owner-submitted window set: weekday and minute
// bounds, slot length from the allowed enumeration, and no overlap between
// windows sharing a weekday.
func ValidateWindows(windows []AvailabilityWindow) error {
	for _, w := range windows {
		if w.Weekday < 1 || w.Weekday > 7 {
			return ErrInvalidWindow
		}
		if w.StartMinute < 0 || w.EndMinute > 24*60 || w.EndMinute <= w.StartMinute {
			return ErrInvalidWindow
		}
		if !ValidSlotLength(w.SlotMinutes) {
			return ErrInvalidWindow
		}
	}

	for i := range windows {
		for j := i + 1; j < len(windows); j++ {
			a, b := windows[i], windows[j]
			if a.Weekday != b.Weekday {
				continue
			}
			if a.StartMinute < b.EndMinute && b.StartMinute < a.EndMinute {
				return ErrWindowsOverlap
			}
		}
	}

	return nil
}
