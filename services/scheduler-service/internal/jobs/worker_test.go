package jobs

import (
	"testing"
	"time"
)

func TestExpiringPayload(t *testing.T) {
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	e := WatchEntry{
		AssignmentID: "a1",
		AutoID:       "auto-1",
		AutoNo:       "KA01AA5555",
		CompanyID:    "c1",
		CompanyName:  "Acme",
		StartDate:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
		Status:       "ACTIVE",
	}
	p := expiringPayload(e, today)
	if p["days_remaining"] != 2 {
		t.Errorf("days_remaining = %v, want 2", p["days_remaining"])
	}
	if p["end_date"] != "2024-03-12" {
		t.Errorf("end_date = %v", p["end_date"])
	}

	// Last day still alerts with zero remaining.
	e.EndDate = today
	if p := expiringPayload(e, today); p["days_remaining"] != 0 {
		t.Errorf("days_remaining on last day = %v, want 0", p["days_remaining"])
	}
}

func TestWorkerDefaults(t *testing.T) {
	w := NewWorker(nil, nil, nil, nil, WorkerConfig{Threshold: -1})
	if w.interval <= 0 || w.batchSize <= 0 {
		t.Fatalf("defaults not applied: %+v", w)
	}
	if w.threshold != 2 {
		t.Errorf("threshold default = %d, want 2", w.threshold)
	}

	// Zero threshold is a valid setting meaning alert on the last day only.
	if w := NewWorker(nil, nil, nil, nil, WorkerConfig{}); w.threshold != 0 {
		t.Errorf("threshold = %d, want 0", w.threshold)
	}
}

func TestWorkerTodayIsMidnightUTC(t *testing.T) {
	w := NewWorker(nil, nil, nil, nil, WorkerConfig{})
	w.SetNow(func() time.Time {
		return time.Date(2024, 3, 10, 23, 59, 0, 0, time.FixedZone("IST", 19800))
	})
	got := w.today()
	want := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	// 23:59 IST is 18:29 UTC the same day.
	if !got.Equal(want) {
		t.Fatalf("today = %v, want %v", got, want)
	}
}
