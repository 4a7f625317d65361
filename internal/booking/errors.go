package booking

import "errors"

// DomainError carries the machine-readable code returned verbatim to
// clients. Handlers map codes to HTTP statuses; everything else surfaces as
// a generic 500 without internal detail.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string { return e.Message }

var (
	ErrInvalidRange         = &DomainError{Code: "INVALID_RANGE", Message: "end must be after start"}
	ErrPastSlot             = &DomainError{Code: "PAST_SLOT", Message: "requested time is in the past"}
	ErrInvalidLocalRange    = &DomainError{Code: "INVALID_LOCAL_RANGE", Message: "interval does not fit inside a single local day"}
	ErrOutsideAvailability  = &DomainError{Code: "OUTSIDE_AVAILABILITY", Message: "no availability window contains the requested interval"}
	ErrInvalidSlotDuration  = &DomainError{Code: "INVALID_SLOT_DURATION", Message: "duration does not match the window's slot length"}
	ErrInvalidSlotAlignment = &DomainError{Code: "INVALID_SLOT_ALIGNMENT", Message: "start does not fall on a slot boundary"}
	ErrRangeTooWide         = &DomainError{Code: "RANGE_TOO_WIDE", Message: "requested range exceeds the maximum"}
	ErrScheduleNotFound     = &DomainError{Code: "SCHEDULE_NOT_FOUND", Message: "schedule not found"}
	ErrSlotTaken            = &DomainError{Code: "SLOT_TAKEN", Message: "slot already has a confirmed booking"}
	ErrSlotBusy             = &DomainError{Code: "SLOT_BUSY", Message: "slot is currently being booked, please retry"}
	ErrForbidden            = &DomainError{Code: "FORBIDDEN", Message: "edit token does not match"}
	ErrInvalidWindow        = &DomainError{Code: "INVALID_WINDOW", Message: "availability window is invalid"}
	ErrWindowsOverlap       = &DomainError{Code: "WINDOWS_OVERLAP", Message: "availability windows overlap on the same weekday"}
)

// Repository-level sentinels, never exposed to clients directly.
var (
	ErrBookingNotFound        = errors.New("booking not found")
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
)
