package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bookwell/booking-core/internal/booking"
	"github.com/bookwell/booking-core/internal/ratelimit"
)

type stubService struct {
	availability    *booking.AvailabilityResult
	availabilityErr error
	booked          *booking.Booking
	bookErr         error
	lastBookReq     booking.BookRequest
	replaceErr      error
}

func (s *stubService) Availability(_ context.Context, _ uuid.UUID, _, _ time.Time) (*booking.AvailabilityResult, error) {
	return s.availability, s.availabilityErr
}

func (s *stubService) Book(_ context.Context, req booking.BookRequest) (*booking.Booking, error) {
	s.lastBookReq = req
	return s.booked, s.bookErr
}

func (s *stubService) Windows(_ context.Context, _ uuid.UUID) (*booking.Schedule, []booking.AvailabilityWindow, error) {
	if s.availability == nil {
		return nil, nil, booking.ErrScheduleNotFound
	}
	return s.availability.Schedule, nil, nil
}

func (s *stubService) ReplaceWindows(_ context.Context, _ uuid.UUID, _ string, _ []booking.AvailabilityWindow) error {
	return s.replaceErr
}

func newTestRouter(svc BookingService, limiter ratelimit.Limiter) http.Handler {
	return NewRouter(RouterConfig{
		Service: svc,
		Limiter: limiter,
		Logger:  zap.NewNop(),
		Env:     "test",
		Version: "test",
	})
}

func testSchedule() *booking.Schedule {
	return &booking.Schedule{
		ID:       uuid.New(),
		Timezone: "Europe/Berlin",
		Title:    "Test Practice",
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestAvailabilityHandler(t *testing.T) {
	schedule := testSchedule()
	start := time.Date(2026, time.September, 7, 7, 0, 0, 0, time.UTC)

	svc := &stubService{
		availability: &booking.AvailabilityResult{
			Schedule: schedule,
			Slots:    []booking.Slot{{Start: start, End: start.Add(30 * time.Minute)}},
		},
	}
	router := newTestRouter(svc, ratelimit.NewMemory(time.Minute, 100))

	url := "/" + schedule.ID.String() + "/availability?from=2026-09-07T00:00:00Z&to=2026-09-08T00:00:00Z"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp AvailabilityResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, schedule.ID, resp.Schedule.ID)
	assert.Equal(t, "Europe/Berlin", resp.Schedule.Timezone)
	require.Len(t, resp.Slots, 1)
	assert.True(t, resp.Slots[0].StartTS.Equal(start))
}

func TestAvailabilityHandlerBadInput(t *testing.T) {
	svc := &stubService{availabilityErr: booking.ErrInvalidRange}
	router := newTestRouter(svc, ratelimit.NewMemory(time.Minute, 100))

	tests := []struct {
		name string
		url  string
		code string
	}{
		{"bad schedule id", "/not-a-uuid/availability?from=2026-09-07T00:00:00Z&to=2026-09-08T00:00:00Z", "INVALID_SCHEDULE_ID"},
		{"missing from", "/" + uuid.NewString() + "/availability?to=2026-09-08T00:00:00Z", "INVALID_RANGE"},
		{"garbage to", "/" + uuid.NewString() + "/availability?from=2026-09-07T00:00:00Z&to=tomorrow", "INVALID_RANGE"},
		{"to before from", "/" + uuid.NewString() + "/availability?from=2026-09-08T00:00:00Z&to=2026-09-07T00:00:00Z", "INVALID_RANGE"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.url, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.code, decodeError(t, rec).Error)
		})
	}
}

func TestAvailabilityHandlerScheduleNotFound(t *testing.T) {
	svc := &stubService{availabilityErr: booking.ErrScheduleNotFound}
	router := newTestRouter(svc, ratelimit.NewMemory(time.Minute, 100))

	url := "/" + uuid.NewString() + "/availability?from=2026-09-07T00:00:00Z&to=2026-09-08T00:00:00Z"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SCHEDULE_NOT_FOUND", decodeError(t, rec).Error)
}

func bookBody(phone string) string {
	return `{
		"start_ts": "2026-09-07T07:00:00Z",
		"end_ts": "2026-09-07T07:30:00Z",
		"guest_name": "Ada Lovelace",
		"guest_phone": "` + phone + `"
	}`
}

func TestBookHandlerCreated(t *testing.T) {
	schedule := testSchedule()
	created := &booking.Booking{
		ID:         uuid.New(),
		ScheduleID: schedule.ID,
		StartTS:    time.Date(2026, time.September, 7, 7, 0, 0, 0, time.UTC),
		EndTS:      time.Date(2026, time.September, 7, 7, 30, 0, 0, time.UTC),
		GuestName:  "Ada Lovelace",
		Status:     booking.StatusBooked,
	}
	svc := &stubService{booked: created}
	router := newTestRouter(svc, ratelimit.NewMemory(time.Minute, 100))

	req := httptest.NewRequest(http.MethodPost, "/"+schedule.ID.String()+"/book", strings.NewReader(bookBody("+4915212345678")))
	req.Header.Set("Idempotency-Key", "client-key-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp BookingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, created.ID, resp.ID)
	assert.Equal(t, "booked", resp.Status)

	assert.Equal(t, "client-key-1", svc.lastBookReq.IdempotencyKey)
	assert.Equal(t, schedule.ID, svc.lastBookReq.ScheduleID)
}

func TestBookHandlerRejectsBadPhone(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, ratelimit.NewMemory(time.Minute, 100))

	for _, phone := range []string{"0151234567", "+0123456789", "12345", "+49 152 1234"} {
		req := httptest.NewRequest(http.MethodPost, "/"+uuid.NewString()+"/book", strings.NewReader(bookBody(phone)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "phone %q must be rejected", phone)
		assert.Equal(t, "INVALID_REQUEST_BODY", decodeError(t, rec).Error)
	}
}

func TestBookHandlerConflictMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{booking.ErrSlotTaken, http.StatusConflict, "SLOT_TAKEN"},
		{booking.ErrSlotBusy, http.StatusConflict, "SLOT_BUSY"},
		{booking.ErrScheduleNotFound, http.StatusNotFound, "SCHEDULE_NOT_FOUND"},
		{booking.ErrPastSlot, http.StatusBadRequest, "PAST_SLOT"},
		{booking.ErrInvalidSlotDuration, http.StatusBadRequest, "INVALID_SLOT_DURATION"},
		{booking.ErrInvalidSlotAlignment, http.StatusBadRequest, "INVALID_SLOT_ALIGNMENT"},
		{booking.ErrOutsideAvailability, http.StatusBadRequest, "OUTSIDE_AVAILABILITY"},
	}

	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			svc := &stubService{bookErr: tc.err}
			router := newTestRouter(svc, ratelimit.NewMemory(time.Minute, 100))

			req := httptest.NewRequest(http.MethodPost, "/"+uuid.NewString()+"/book", strings.NewReader(bookBody("+4915212345678")))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeError(t, rec).Error)
		})
	}
}

func TestBookHandlerHidesInternalErrors(t *testing.T) {
	svc := &stubService{bookErr: context.DeadlineExceeded}
	router := newTestRouter(svc, ratelimit.NewMemory(time.Minute, 100))

	req := httptest.NewRequest(http.MethodPost, "/"+uuid.NewString()+"/book", strings.NewReader(bookBody("+4915212345678")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "INTERNAL", body.Error)
	assert.NotContains(t, body.Details, "deadline")
}

func TestBookHandlerRateLimited(t *testing.T) {
	schedule := testSchedule()
	svc := &stubService{booked: &booking.Booking{ID: uuid.New(), ScheduleID: schedule.ID, Status: booking.StatusBooked}}
	router := newTestRouter(svc, ratelimit.NewMemory(time.Minute, 2))

	url := "/" + schedule.ID.String() + "/book"
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(bookBody("+4915212345678")))
		req.RemoteAddr = "203.0.113.9:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(bookBody("+4915212345678")))
	req.RemoteAddr = "203.0.113.9:1234"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "RATE_LIMITED", body.Error)
	assert.Positive(t, body.RetryAfterSeconds)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A caller from another address is not throttled.
	req = httptest.NewRequest(http.MethodPost, url, strings.NewReader(bookBody("+4915212345678")))
	req.RemoteAddr = "198.51.100.7:9999"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestBookHandlerForwardedForNotTrustedByDefault(t *testing.T) {
	schedule := testSchedule()
	svc := &stubService{booked: &booking.Booking{ID: uuid.New(), ScheduleID: schedule.ID, Status: booking.StatusBooked}}
	router := newTestRouter(svc, ratelimit.NewMemory(time.Minute, 2))

	url := "/" + schedule.ID.String() + "/book"

	// A direct caller rotating X-Forwarded-For must not mint fresh
	// rate-limit buckets; all three land in the same window.
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(bookBody("+4915212345678")))
		req.RemoteAddr = "203.0.113.9:1234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i+1))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if i < 2 {
			require.Equal(t, http.StatusCreated, rec.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		}
	}
}

func TestClientIPTrustedProxyUsesLastHop(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:5000"
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 203.0.113.9")

	assert.Equal(t, "127.0.0.1", clientIP(req, false))
	assert.Equal(t, "203.0.113.9", clientIP(req, true))

	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "127.0.0.1", clientIP(req, true))
}

func TestPutWindowsHandler(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, ratelimit.NewMemory(time.Minute, 100))

	body := `{"windows":[{"weekday":1,"start_minute":540,"end_minute":720,"slot_minutes":30}]}`
	url := "/" + uuid.NewString() + "/windows"

	// Missing edit token.
	req := httptest.NewRequest(http.MethodPut, url, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Wrong token surfaces the service's FORBIDDEN.
	svc.replaceErr = booking.ErrForbidden
	req = httptest.NewRequest(http.MethodPut, url, strings.NewReader(body))
	req.Header.Set("X-Edit-Token", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, rec).Error)

	// Valid token and payload.
	svc.replaceErr = nil
	req = httptest.NewRequest(http.MethodPut, url, strings.NewReader(body))
	req.Header.Set("X-Edit-Token", "secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Bad slot length is rejected before reaching the service.
	bad := `{"windows":[{"weekday":1,"start_minute":540,"end_minute":720,"slot_minutes":25}]}`
	req = httptest.NewRequest(http.MethodPut, url, strings.NewReader(bad))
	req.Header.Set("X-Edit-Token", "secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_WINDOW", decodeError(t, rec).Error)
}
