package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule

	err := row.Scan(
		&s.ID,
		&s.OwnerID,
		&s.Timezone,
		&s.Title,
		&s.EditToken,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking

	err := row.Scan(
		&b.ID,
		&b.ScheduleID,
		&b.StartTS,
		&b.EndTS,
		&b.GuestName,
		&b.GuestPhone,
		&b.Status,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	return &b, nil
}

// Interface methods

func (r *PgRepository) GetScheduleByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, timezone, title, edit_token, created_at, updated_at
		FROM schedules
		WHERE id = $1
	`, id)
	return scanSchedule(row)
}

func (r *PgRepository) GetScheduleWindows(ctx context.Context, scheduleID uuid.UUID) ([]AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, schedule_id, weekday, start_minute, end_minute, slot_minutes
		FROM availability_windows
		WHERE schedule_id = $1
		ORDER BY weekday, start_minute
	`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailabilityWindow
	for rows.Next() {
		var w AvailabilityWindow
		if err := rows.Scan(&w.ID, &w.ScheduleID, &w.Weekday, &w.StartMinute, &w.EndMinute, &w.SlotMinutes); err != nil {
			return nil, err
		}
		result = append(result, w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ReplaceScheduleWindows(ctx context.Context, scheduleID uuid.UUID, windows []AvailabilityWindow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM availability_windows WHERE schedule_id = $1
	`, scheduleID); err != nil {
		return fmt.Errorf("clear windows: %w", err)
	}

	for _, w := range windows {
		id := w.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO availability_windows (id, schedule_id, weekday, start_minute, end_minute, slot_minutes)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, id, scheduleID, w.Weekday, w.StartMinute, w.EndMinute, w.SlotMinutes); err != nil {
			return fmt.Errorf("insert window: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE schedules SET updated_at = now() WHERE id = $1
	`, scheduleID); err != nil {
		return fmt.Errorf("touch schedule: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) ListBookedIntervals(ctx context.Context, scheduleID uuid.UUID, from, to time.Time) ([]Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_ts, end_ts
		FROM bookings
		WHERE schedule_id = $1
		  AND status = 'booked'
		  AND start_ts < $3
		  AND end_ts > $2
		ORDER BY start_ts
	`, scheduleID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Interval
	for rows.Next() {
		var iv Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		result = append(result, iv)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, schedule_id, start_ts, end_ts, guest_name, guest_phone, status, created_at
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) GetIdempotentBooking(ctx context.Context, scheduleID uuid.UUID, key string) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT b.id, b.schedule_id, b.start_ts, b.end_ts, b.guest_name, b.guest_phone, b.status, b.created_at
		FROM idempotency_keys k
		JOIN bookings b ON b.id = k.booking_id
		WHERE k.schedule_id = $1 AND k.key = $2
	`, scheduleID, key)

	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, ErrIdempotencyKeyNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *PgRepository) CreateBooking(ctx context.Context, p CreateBookingParams) (*Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Re-check inside the transaction: availability may have changed between
	// the client's read and this write.
	var conflict bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE schedule_id = $1
			  AND status = 'booked'
			  AND start_ts < $3
			  AND end_ts > $2
		)
	`, p.ScheduleID, p.Start, p.End).Scan(&conflict)
	if err != nil {
		return nil, fmt.Errorf("conflict re-check: %w", err)
	}
	if conflict {
		return nil, ErrSlotTaken
	}

	id := uuid.New()

	row := tx.QueryRow(ctx, `
		INSERT INTO bookings (id, schedule_id, start_ts, end_ts, guest_name, guest_phone, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'booked', now())
		RETURNING id, schedule_id, start_ts, end_ts, guest_name, guest_phone, status, created_at
	`, id, p.ScheduleID, p.Start, p.End, p.GuestName, p.GuestPhone)

	b, err := scanBooking(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	// Record the idempotency outcome in the same transaction, so a crash
	// between commit and record cannot produce a lost duplicate on retry.
	if p.IdempotencyKey != "" {
		if _, err := tx.Exec(ctx, `
			INSERT INTO idempotency_keys (schedule_id, key, booking_id, code, created_at)
			VALUES ($1, $2, $3, $4, now())
		`, p.ScheduleID, p.IdempotencyKey, b.ID, string(StatusBooked)); err != nil {
			// A concurrent request with the same key got there first. That
			// request's outcome is the canonical one: abandon our insert and
			// hand back the winner's booking.
			if isUniqueViolation(err) {
				_ = tx.Rollback(ctx)
				prev, lookupErr := r.GetIdempotentBooking(ctx, p.ScheduleID, p.IdempotencyKey)
				if lookupErr == nil {
					return prev, nil
				}
				return nil, ErrSlotTaken
			}
			return nil, fmt.Errorf("record idempotency key: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("commit booking: %w", err)
	}

	return b, nil
}

// isUniqueViolation reports whether err is Postgres error 23505. The partial
// unique index on (schedule_id, start_ts, end_ts) is the invariant of last
// resort when the interval lock is bypassed; the loser of a race sees this.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
