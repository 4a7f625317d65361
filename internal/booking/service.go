package booking

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bookwell/booking-core/internal/config"
	redisclient "github.com/bookwell/booking-core/internal/redis"
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	cfg    config.Config
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

type AvailabilityResult struct {
	Schedule *Schedule
	Slots    []Slot
}

// Availability recomputes the bookable slots for [from, to) from scratch.
// Nothing is cached: a booking committed by anyone must invalidate affected
// slots on the very next query.
func (s *Service) Availability(ctx context.Context, scheduleID uuid.UUID, from, to time.Time) (*AvailabilityResult, error) {
	if !to.After(from) {
		return nil, ErrInvalidRange
	}
	if to.Sub(from) > time.Duration(s.cfg.MaxRangeDays)*24*time.Hour {
		return nil, ErrRangeTooWide
	}

	schedule, err := s.repo.GetScheduleByID(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}

	loc, err := LoadLocation(schedule.Timezone)
	if err != nil {
		return nil, err
	}

	windows, err := s.repo.GetScheduleWindows(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("load windows: %w", err)
	}

	booked, err := s.repo.ListBookedIntervals(ctx, scheduleID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load booked intervals: %w", err)
	}

	slots := ComputeAvailability(windows, booked, from, to, loc, s.now().UTC())

	return &AvailabilityResult{Schedule: schedule, Slots: slots}, nil
}

type BookRequest struct {
	ScheduleID     uuid.UUID
	Start          time.Time
	End            time.Time
	GuestName      string
	GuestPhone     string
	IdempotencyKey string
}

// Book commits one booking exactly once per slot. The interval lock
// serializes only attempts targeting the same (schedule, start, end); the
// validator and the conflict re-check run inside the critical section, and
// the partial unique index backstops the whole thing.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Booking, error) {
	schedule, err := s.repo.GetScheduleByID(ctx, req.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}

	loc, err := LoadLocation(schedule.Timezone)
	if err != nil {
		return nil, err
	}

	// A retried submission with a recorded key returns the stored outcome
	// without touching the committer.
	if req.IdempotencyKey != "" {
		prev, err := s.repo.GetIdempotentBooking(ctx, req.ScheduleID, req.IdempotencyKey)
		if err == nil {
			s.logger.Info("idempotent replay",
				zap.String("schedule_id", req.ScheduleID.String()),
				zap.String("booking_id", prev.ID.String()))
			return prev, nil
		}
		if !errors.Is(err, ErrIdempotencyKeyNotFound) {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
	}

	// Once the commit starts, an abandoned client connection must not abort
	// it; the transaction runs to completion on a detached context.
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.BookingTimeout)
	defer cancel()

	var created *Booking

	err = s.locker.WithIntervalLock(commitCtx, req.ScheduleID, req.Start, req.End, func(lockCtx context.Context) error {
		windows, err := s.repo.GetScheduleWindows(lockCtx, req.ScheduleID)
		if err != nil {
			return fmt.Errorf("load windows: %w", err)
		}

		if _, err := Validate(loc, windows, req.Start, req.End, s.now().UTC()); err != nil {
			return err
		}

		b, err := s.repo.CreateBooking(lockCtx, CreateBookingParams{
			ScheduleID:     req.ScheduleID,
			Start:          req.Start,
			End:            req.End,
			GuestName:      req.GuestName,
			GuestPhone:     req.GuestPhone,
			IdempotencyKey: req.IdempotencyKey,
		})
		if err != nil {
			return err
		}

		created = b
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBusy
		}
		return nil, err
	}

	s.logger.Info("booking committed",
		zap.String("schedule_id", req.ScheduleID.String()),
		zap.String("booking_id", created.ID.String()),
		zap.Time("start", created.StartTS),
		zap.Time("end", created.EndTS))

	return created, nil
}

// Windows returns the schedule and its availability configuration.
func (s *Service) Windows(ctx context.Context, scheduleID uuid.UUID) (*Schedule, []AvailabilityWindow, error) {
	schedule, err := s.repo.GetScheduleByID(ctx, scheduleID)
	if err != nil {
		return nil, nil, fmt.Errorf("load schedule: %w", err)
	}

	windows, err := s.repo.GetScheduleWindows(ctx, scheduleID)
	if err != nil {
		return nil, nil, fmt.Errorf("load windows: %w", err)
	}

	return schedule, windows, nil
}

// ReplaceWindows is the owner settings write path: full replacement of the
// window set, guarded by the schedule's edit token.
func (s *Service) ReplaceWindows(ctx context.Context, scheduleID uuid.UUID, editToken string, windows []AvailabilityWindow) error {
	schedule, err := s.repo.GetScheduleByID(ctx, scheduleID)
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(schedule.EditToken), []byte(editToken)) != 1 {
		return ErrForbidden
	}

	if err := ValidateWindows(windows); err != nil {
		return err
	}

	if err := s.repo.ReplaceScheduleWindows(ctx, scheduleID, windows); err != nil {
		return fmt.Errorf("replace windows: %w", err)
	}

	s.logger.Info("windows replaced",
		zap.String("schedule_id", scheduleID.String()),
		zap.Int("count", len(windows)))

	return nil
}
