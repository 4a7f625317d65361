package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Races N concurrent clients for the same candidate interval and reports the
// outcome distribution. A correct deployment yields exactly one 201; every
// other attempt gets 409 (SLOT_TAKEN or SLOT_BUSY) or 429.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	baseURL := flag.String("base-url", "http://127.0.0.1:8080", "api-server base URL")
	scheduleID := flag.String("schedule", "", "schedule UUID (required)")
	workers := flag.Int("workers", 20, "concurrent booking attempts")
	flag.Parse()

	if *scheduleID == "" {
		log.Fatal("-schedule is required")
	}
	if _, err := uuid.Parse(*scheduleID); err != nil {
		log.Fatalf("-schedule must be a valid UUID: %v", err)
	}

	slot, err := firstAvailableSlot(*baseURL, *scheduleID)
	if err != nil {
		log.Fatalf("fetch availability: %v", err)
	}
	log.Printf("racing %d workers for slot %s – %s", *workers, slot.StartTS.Format(time.RFC3339), slot.EndTS.Format(time.RFC3339))

	var created, conflicts, limited, other atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			status, code, err := attemptBooking(*baseURL, *scheduleID, slot, n)
			if err != nil {
				log.Printf("worker %d error: %v", n, err)
				other.Add(1)
				return
			}

			switch {
			case status == http.StatusCreated:
				created.Add(1)
			case status == http.StatusConflict:
				conflicts.Add(1)
			case status == http.StatusTooManyRequests:
				limited.Add(1)
			default:
				log.Printf("worker %d unexpected status=%d code=%s", n, status, code)
				other.Add(1)
			}
		}(i)
	}
	wg.Wait()

	log.Printf("results: created=%d conflicts=%d rate_limited=%d other=%d",
		created.Load(), conflicts.Load(), limited.Load(), other.Load())

	if created.Load() != 1 {
		log.Fatalf("FAIL: expected exactly one winner, got %d", created.Load())
	}
	log.Println("OK: exactly one booking won the race")
}

type slotPayload struct {
	StartTS time.Time `json:"start_ts"`
	EndTS   time.Time `json:"end_ts"`
}

type availabilityPayload struct {
	Slots []slotPayload `json:"slots"`
}

func firstAvailableSlot(baseURL, scheduleID string) (slotPayload, error) {
	from := time.Now().UTC().Add(time.Hour)
	to := from.Add(14 * 24 * time.Hour)

	url := fmt.Sprintf("%s/%s/availability?from=%s&to=%s",
		baseURL, scheduleID, from.Format(time.RFC3339), to.Format(time.RFC3339))

	resp, err := http.Get(url)
	if err != nil {
		return slotPayload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return slotPayload{}, fmt.Errorf("availability returned %d: %s", resp.StatusCode, body)
	}

	var payload availabilityPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return slotPayload{}, err
	}
	if len(payload.Slots) == 0 {
		return slotPayload{}, fmt.Errorf("no available slots in the next 14 days")
	}

	return payload.Slots[0], nil
}

func attemptBooking(baseURL, scheduleID string, slot slotPayload, worker int) (int, string, error) {
	body, err := json.Marshal(map[string]any{
		"start_ts":    slot.StartTS,
		"end_ts":      slot.EndTS,
		"guest_name":  fmt.Sprintf("Race Worker %d", worker),
		"guest_phone": fmt.Sprintf("+4915200%06d", worker),
	})
	if err != nil {
		return 0, "", err
	}

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/%s/book", baseURL, scheduleID), bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	var errBody struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &errBody)

	return resp.StatusCode, errBody.Error, nil
}
