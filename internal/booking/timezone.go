package booking

import (
	"fmt"
	"time"
)

// The schedule's timezone drives every local/UTC conversion. Using the IANA
// database through time.LoadLocation keeps slot math correct across
// daylight-saving transitions; fixed offsets would not be.

func LoadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// isoWeekday maps time.Weekday to ISO numbering, Monday=1 through Sunday=7.
func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// localParts returns the ISO weekday and the wall-clock minute of day of t
// observed in loc.
func localParts(t time.Time, loc *time.Location) (weekday, minute int) {
	lt := t.In(loc)
	return isoWeekday(lt.Weekday()), lt.Hour()*60 + lt.Minute()
}

// atLocalMinute resolves a wall-clock minute of a local calendar day to a
// UTC instant. time.Date normalizes minutes past midnight and lets the
// timezone database resolve skipped or repeated hours, so each slot is
// converted independently and DST days simply yield shifted instants.
func atLocalMinute(year int, month time.Month, day, minute int, loc *time.Location) time.Time {
	return time.Date(year, month, day, 0, minute, 0, 0, loc).UTC()
}
