package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookwell/booking-core/internal/db"
)

// Seeds demo schedules with weekday availability windows so the booking page
// has something to show. Prints each schedule id and edit token for use with
// the owner endpoints.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, dsn, 4)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(context.Background(), pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedSchedules(context.Background(), pool, 25); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}

	log.Println("seed complete")
}

func seedSchedules(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d schedules", count)

	timezones := []string{
		"Europe/Berlin",
		"Europe/London",
		"America/New_York",
		"America/Los_Angeles",
		"Asia/Tokyo",
		"Australia/Sydney",
	}

	practices := []string{
		"Massage Therapy",
		"Yoga Coaching",
		"Nutrition Counseling",
		"Physiotherapy",
		"Meditation Sessions",
		"Life Coaching",
	}

	slotLengths := []int{15, 20, 30, 45, 60}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		scheduleID := uuid.New()
		editToken := uuid.NewString()
		tz := timezones[gofakeit.Number(0, len(timezones)-1)]
		title := gofakeit.Name() + " — " + practices[gofakeit.Number(0, len(practices)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO schedules (id, owner_id, timezone, title, edit_token, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, scheduleID, uuid.New(), tz, title, editToken)
		if err != nil {
			return err
		}

		// Weekday windows: morning and afternoon blocks, one slot length per
		// schedule like a real practitioner would configure.
		slotLen := slotLengths[gofakeit.Number(0, len(slotLengths)-1)]
		for weekday := 1; weekday <= 5; weekday++ {
			blocks := [][2]int{
				{9 * 60, 12 * 60},
				{13 * 60, 17 * 60},
			}
			for _, blk := range blocks {
				_, err := tx.Exec(ctx, `
					INSERT INTO availability_windows (id, schedule_id, weekday, start_minute, end_minute, slot_minutes)
					VALUES ($1, $2, $3, $4, $5, $6)
				`, uuid.New(), scheduleID, weekday, blk[0], blk[1], slotLen)
				if err != nil {
					return err
				}
			}
		}

		log.Printf("schedule=%s tz=%s slot=%dm edit_token=%s", scheduleID, tz, slotLen, editToken)
	}

	return tx.Commit(ctx)
}
