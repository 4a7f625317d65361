package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements is the full DDL for the booking ledger, one statement per
// entry because pgx's extended protocol executes a single command at a time.
// EnsureSchema is idempotent and safe to run on every seed; production
// deployments apply the same DDL through their migration tooling.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS schedules (
		id          uuid PRIMARY KEY,
		owner_id    uuid NOT NULL,
		timezone    text NOT NULL,
		title       text NOT NULL,
		edit_token  text NOT NULL,
		created_at  timestamptz NOT NULL DEFAULT now(),
		updated_at  timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS availability_windows (
		id           uuid PRIMARY KEY,
		schedule_id  uuid NOT NULL REFERENCES schedules (id) ON DELETE CASCADE,
		weekday      int  NOT NULL CHECK (weekday BETWEEN 1 AND 7),
		start_minute int  NOT NULL CHECK (start_minute >= 0),
		end_minute   int  NOT NULL CHECK (end_minute <= 1440 AND end_minute > start_minute),
		slot_minutes int  NOT NULL CHECK (slot_minutes IN (15, 20, 30, 45, 60))
	)`,

	`CREATE INDEX IF NOT EXISTS idx_windows_schedule_weekday
		ON availability_windows (schedule_id, weekday)`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id           uuid PRIMARY KEY,
		schedule_id  uuid NOT NULL REFERENCES schedules (id) ON DELETE CASCADE,
		start_ts     timestamptz NOT NULL,
		end_ts       timestamptz NOT NULL CHECK (end_ts > start_ts),
		guest_name   text NOT NULL,
		guest_phone  text NOT NULL,
		status       text NOT NULL CHECK (status IN ('booked', 'canceled')),
		created_at   timestamptz NOT NULL DEFAULT now()
	)`,

	// Invariant of last resort: at most one live booking per exact interval,
	// even if the interval lock is bypassed.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_bookings_live_interval
		ON bookings (schedule_id, start_ts, end_ts)
		WHERE status <> 'canceled'`,

	`CREATE INDEX IF NOT EXISTS idx_bookings_schedule_range
		ON bookings (schedule_id, start_ts)
		WHERE status = 'booked'`,

	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		schedule_id  uuid NOT NULL REFERENCES schedules (id) ON DELETE CASCADE,
		key          text NOT NULL,
		booking_id   uuid REFERENCES bookings (id),
		code         text NOT NULL,
		created_at   timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (schedule_id, key)
	)`,
}

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
