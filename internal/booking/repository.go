package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CreateBookingParams is the input for one atomic booking commit. When
// IdempotencyKey is non-empty the key record is written in the same
// transaction as the booking row.
type CreateBookingParams struct {
	ScheduleID     uuid.UUID
	Start          time.Time
	End            time.Time
	GuestName      string
	GuestPhone     string
	IdempotencyKey string
}

// Repository contains all ledger interactions needed by the service.
type Repository interface {
	GetScheduleByID(ctx context.Context, id uuid.UUID) (*Schedule, error)

	// Windows are read-only to the booking path; ReplaceScheduleWindows is
	// the owner settings write path.
	GetScheduleWindows(ctx context.Context, scheduleID uuid.UUID) ([]AvailabilityWindow, error)
	ReplaceScheduleWindows(ctx context.Context, scheduleID uuid.UUID, windows []AvailabilityWindow) error

	// ListBookedIntervals returns [start,end) intervals of status=booked
	// bookings intersecting [from, to).
	ListBookedIntervals(ctx context.Context, scheduleID uuid.UUID, from, to time.Time) ([]Interval, error)

	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// GetIdempotentBooking returns the booking previously committed under
	// (scheduleID, key), or ErrIdempotencyKeyNotFound.
	GetIdempotentBooking(ctx context.Context, scheduleID uuid.UUID, key string) (*Booking, error)

	// CreateBooking runs the conflict re-check and the insert in one
	// transaction. An overlapping booked row, or a uniqueness violation from
	// a racing insert, surfaces as ErrSlotTaken.
	CreateBooking(ctx context.Context, p CreateBookingParams) (*Booking, error)
}
