package booking

import (
	"sort"
	"time"
)

// ComputeAvailability derives the bookable slots for [fromUTC, toUTC) from
// the schedule's windows minus the given booked intervals. The result is
// fully materialized, ascending by start, and carries no hidden state; it is
// safe and cheap to recompute on every request.
//
// Windows need not be sorted. booked must contain only status=booked
// intervals; whether they overlap the range is checked here anyway.
func ComputeAvailability(windows []AvailabilityWindow, booked []Interval, fromUTC, toUTC time.Time, loc *time.Location, nowUTC time.Time) []Slot {
	if len(windows) == 0 || !toUTC.After(fromUTC) {
		return nil
	}

	byWeekday := make(map[int][]AvailabilityWindow, 7)
	for _, w := range windows {
		byWeekday[w.Weekday] = append(byWeekday[w.Weekday], w)
	}
	for _, ws := range byWeekday {
		sort.Slice(ws, func(i, j int) bool { return ws[i].StartMinute < ws[j].StartMinute })
	}

	var slots []Slot

	// Walk each local calendar day intersecting the range.
	year, month, day := fromUTC.In(loc).Date()
	for {
		dayStart := time.Date(year, month, day, 0, 0, 0, 0, loc)
		if !dayStart.Before(toUTC) {
			break
		}

		for _, w := range byWeekday[isoWeekday(dayStart.Weekday())] {
			// Step by slot length; a trailing partial slot is dropped.
			for m := w.StartMinute; m+w.SlotMinutes <= w.EndMinute; m += w.SlotMinutes {
				start := atLocalMinute(year, month, day, m, loc)
				end := atLocalMinute(year, month, day, m+w.SlotMinutes, loc)

				// A skipped DST hour can collapse a slot; drop it.
				if !end.After(start) {
					continue
				}
				if start.Before(nowUTC) || start.Before(fromUTC) || end.After(toUTC) {
					continue
				}
				if overlapsAny(booked, Interval{Start: start, End: end}) {
					continue
				}

				slots = append(slots, Slot{Start: start, End: end})
			}
		}

		year, month, day = dayStart.AddDate(0, 0, 1).Date()
	}

	// Per-day iteration emits in wall-clock order; DST conversion keeps UTC
	// order within a day, but sort anyway so the contract never depends on it.
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })

	return slots
}

func overlapsAny(booked []Interval, candidate Interval) bool {
	for _, b := range booked {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}
