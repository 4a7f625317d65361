package api

import (
	"time"

	"github.com/google/uuid"
)

type BookRequest struct {
	StartTS    time.Time `json:"start_ts" validate:"required"`
	EndTS      time.Time `json:"end_ts" validate:"required"`
	GuestName  string    `json:"guest_name" validate:"required,min=1,max=200"`
	GuestPhone string    `json:"guest_phone" validate:"required,e164,min=8,max=16"`
}

type BookingResponse struct {
	ID         uuid.UUID `json:"id"`
	ScheduleID uuid.UUID `json:"schedule_id"`
	StartTS    time.Time `json:"start_ts"`
	EndTS      time.Time `json:"end_ts"`
	GuestName  string    `json:"guest_name"`
	Status     string    `json:"status"`
}

type ScheduleResponse struct {
	ID       uuid.UUID `json:"id"`
	Timezone string    `json:"timezone"`
	Title    string    `json:"title"`
}

type SlotResponse struct {
	StartTS time.Time `json:"start_ts"`
	EndTS   time.Time `json:"end_ts"`
}

type AvailabilityResponse struct {
	Schedule ScheduleResponse `json:"schedule"`
	Slots    []SlotResponse   `json:"slots"`
}

type WindowPayload struct {
	Weekday     int `json:"weekday" validate:"required,min=1,max=7"`
	StartMinute int `json:"start_minute" validate:"min=0,max=1439"`
	EndMinute   int `json:"end_minute" validate:"required,min=1,max=1440"`
	SlotMinutes int `json:"slot_minutes" validate:"required,oneof=15 20 30 45 60"`
}

type ReplaceWindowsRequest struct {
	Windows []WindowPayload `json:"windows" validate:"dive"`
}

type WindowsResponse struct {
	Schedule ScheduleResponse `json:"schedule"`
	Windows  []WindowPayload  `json:"windows"`
}

type ErrorResponse struct {
	Error             string `json:"error"`
	Details           string `json:"details,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}
