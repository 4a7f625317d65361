package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bookwell/booking-core/internal/booking"
	"github.com/bookwell/booking-core/internal/ratelimit"
)

// BookingService is the seam between HTTP handlers and the booking core.
type BookingService interface {
	Availability(ctx context.Context, scheduleID uuid.UUID, from, to time.Time) (*booking.AvailabilityResult, error)
	Book(ctx context.Context, req booking.BookRequest) (*booking.Booking, error)
	Windows(ctx context.Context, scheduleID uuid.UUID) (*booking.Schedule, []booking.AvailabilityWindow, error)
	ReplaceWindows(ctx context.Context, scheduleID uuid.UUID, editToken string, windows []booking.AvailabilityWindow) error
}

// codeStatus maps domain failure codes to HTTP statuses. Codes not listed
// here are client input/policy failures and map to 400.
var codeStatus = map[string]int{
	"SCHEDULE_NOT_FOUND": http.StatusNotFound,
	"SLOT_TAKEN":         http.StatusConflict,
	"SLOT_BUSY":          http.StatusConflict,
	"FORBIDDEN":          http.StatusForbidden,
}

func handleDomainError(w http.ResponseWriter, logger *zap.Logger, r *http.Request, err error) {
	var domainErr *booking.DomainError
	if errors.As(err, &domainErr) {
		status, ok := codeStatus[domainErr.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		writeError(w, status, domainErr.Code, domainErr.Message)
		return
	}

	// Infrastructure failure: log with detail, respond without it.
	logger.Error("internal error",
		zap.String("path", r.URL.Path),
		zap.String("request_id", GetRequestID(r.Context())),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

func parseScheduleID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "scheduleID"))
	return id, err == nil
}

func availabilityHandler(svc BookingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheduleID, ok := parseScheduleID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "INVALID_SCHEDULE_ID", "scheduleID must be a valid UUID")
			return
		}

		from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_RANGE", "from must be a UTC ISO-8601 timestamp")
			return
		}
		to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_RANGE", "to must be a UTC ISO-8601 timestamp")
			return
		}

		result, err := svc.Availability(r.Context(), scheduleID, from.UTC(), to.UTC())
		if err != nil {
			handleDomainError(w, logger, r, err)
			return
		}

		slots := make([]SlotResponse, 0, len(result.Slots))
		for _, s := range result.Slots {
			slots = append(slots, SlotResponse{StartTS: s.Start, EndTS: s.End})
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			Schedule: ScheduleResponse{
				ID:       result.Schedule.ID,
				Timezone: result.Schedule.Timezone,
				Title:    result.Schedule.Title,
			},
			Slots: slots,
		})
	}
}

func bookHandler(svc BookingService, limiter ratelimit.Limiter, validate *validator.Validate, trustProxy bool, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheduleID, ok := parseScheduleID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "INVALID_SCHEDULE_ID", "scheduleID must be a valid UUID")
			return
		}

		// Throttle before any parsing work; identity is the public link plus
		// the caller's network address.
		decision, err := limiter.Check(r.Context(), scheduleID.String()+":"+clientIP(r, trustProxy))
		if err != nil {
			// Fail open: a limiter outage must not take bookings down.
			logger.Warn("rate limiter unavailable", zap.Error(err))
		} else if !decision.Allowed {
			retryAfter := int(decision.RetryAfter.Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
				Error:             "RATE_LIMITED",
				Details:           "too many booking attempts, slow down",
				RetryAfterSeconds: retryAfter,
			})
			return
		}

		var req BookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST_BODY", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST_BODY", validationDetails(err))
			return
		}

		created, err := svc.Book(r.Context(), booking.BookRequest{
			ScheduleID:     scheduleID,
			Start:          req.StartTS.UTC(),
			End:            req.EndTS.UTC(),
			GuestName:      strings.TrimSpace(req.GuestName),
			GuestPhone:     req.GuestPhone,
			IdempotencyKey: r.Header.Get("Idempotency-Key"),
		})
		if err != nil {
			handleDomainError(w, logger, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, BookingResponse{
			ID:         created.ID,
			ScheduleID: created.ScheduleID,
			StartTS:    created.StartTS,
			EndTS:      created.EndTS,
			GuestName:  created.GuestName,
			Status:     string(created.Status),
		})
	}
}

func getWindowsHandler(svc BookingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheduleID, ok := parseScheduleID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "INVALID_SCHEDULE_ID", "scheduleID must be a valid UUID")
			return
		}

		schedule, windows, err := svc.Windows(r.Context(), scheduleID)
		if err != nil {
			handleDomainError(w, logger, r, err)
			return
		}

		payload := make([]WindowPayload, 0, len(windows))
		for _, win := range windows {
			payload = append(payload, WindowPayload{
				Weekday:     win.Weekday,
				StartMinute: win.StartMinute,
				EndMinute:   win.EndMinute,
				SlotMinutes: win.SlotMinutes,
			})
		}

		writeJSON(w, http.StatusOK, WindowsResponse{
			Schedule: ScheduleResponse{
				ID:       schedule.ID,
				Timezone: schedule.Timezone,
				Title:    schedule.Title,
			},
			Windows: payload,
		})
	}
}

func putWindowsHandler(svc BookingService, validate *validator.Validate, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheduleID, ok := parseScheduleID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "INVALID_SCHEDULE_ID", "scheduleID must be a valid UUID")
			return
		}

		editToken := r.Header.Get("X-Edit-Token")
		if editToken == "" {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "X-Edit-Token header is required")
			return
		}

		var req ReplaceWindowsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST_BODY", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_WINDOW", validationDetails(err))
			return
		}

		windows := make([]booking.AvailabilityWindow, 0, len(req.Windows))
		for _, win := range req.Windows {
			windows = append(windows, booking.AvailabilityWindow{
				ScheduleID:  scheduleID,
				Weekday:     win.Weekday,
				StartMinute: win.StartMinute,
				EndMinute:   win.EndMinute,
				SlotMinutes: win.SlotMinutes,
			})
		}

		if err := svc.ReplaceWindows(r.Context(), scheduleID, editToken, windows); err != nil {
			handleDomainError(w, logger, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]int{"windows": len(windows)})
	}
}

func validationDetails(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

// clientIP derives the throttling identity. X-Forwarded-For is only honored
// behind a trusted reverse proxy, and then only its last hop (the one the
// proxy itself appended); a direct caller could put anything in the earlier
// hops and mint fresh rate-limit buckets at will.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			hops := strings.Split(fwd, ",")
			return strings.TrimSpace(hops[len(hops)-1])
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
