package booking

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	StatusBooked   BookingStatus = "booked"
	StatusCanceled BookingStatus = "canceled"
)

// SlotLengths is the fixed set of allowed slot lengths in minutes.
var SlotLengths = []int{15, 20, 30, 45, 60}

func ValidSlotLength(minutes int) bool {
	for _, n := range SlotLengths {
		if n == minutes {
			return true
		}
	}
	return false
}

// Schedule is one professional's bookable calendar configuration. The
// booking path never mutates it; only owner settings updates do.
type Schedule struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Timezone  string // IANA name, e.g. "Europe/Berlin"
	Title     string
	EditToken string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailabilityWindow is a recurring weekly interval during which bookings of
// a fixed slot length are allowed. Weekday follows ISO convention, Monday=1
// through Sunday=7. Minutes are local wall-clock minutes of day, 0–1440.
type AvailabilityWindow struct {
	ID          uuid.UUID
	ScheduleID  uuid.UUID
	Weekday     int
	StartMinute int
	EndMinute   int
	SlotMinutes int
}

type Booking struct {
	ID         uuid.UUID
	ScheduleID uuid.UUID
	StartTS    time.Time
	EndTS      time.Time
	GuestName  string
	GuestPhone string
	Status     BookingStatus
	CreatedAt  time.Time
}

// Interval is a half-open [Start, End) UTC interval.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Slot is a derived bookable candidate interval. Slots are recomputed on
// every availability query and never persisted or cached.
type Slot struct {
	Start time.Time
	End   time.Time
}
