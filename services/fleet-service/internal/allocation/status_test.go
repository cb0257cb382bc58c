package allocation

import (
	"errors"
	"testing"

	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
)

func TestDeriveStatus(t *testing.T) {
	today := day(t, "2024-03-10")
	cases := []struct {
		name string
		in   []model.Assignment
		want model.AutoStatus
	}{
		{"no assignments", nil, model.AutoIdle},
		{"only completed", []model.Assignment{
			asn(t, "a1", "c1", "2024-01-01", "2024-01-31", model.AssignmentCompleted),
		}, model.AutoIdle},
		{"current booking", []model.Assignment{
			asn(t, "a1", "c1", "2024-03-05", "2024-03-15", model.AssignmentActive),
		}, model.AutoAssigned},
		{"starts today", []model.Assignment{
			asn(t, "a1", "c1", "2024-03-10", "2024-03-15", model.AssignmentPrebooked),
		}, model.AutoAssigned},
		{"future only", []model.Assignment{
			asn(t, "a1", "c1", "2024-04-01", "2024-04-15", model.AssignmentPrebooked),
		}, model.AutoPreAssigned},
		{"earliest wins", []model.Assignment{
			asn(t, "future", "c1", "2024-04-01", "2024-04-15", model.AssignmentPrebooked),
			asn(t, "cur", "c2", "2024-03-01", "2024-03-12", model.AssignmentActive),
		}, model.AutoAssigned},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DeriveStatus(c.in, today); got != c.want {
				t.Errorf("DeriveStatus = %s, want %s", got, c.want)
			}
		})
	}
}

func TestAvailableCount(t *testing.T) {
	snaps := []AutoSnapshot{
		{Auto: idleAuto("auto-1")},
		{Auto: model.Auto{ID: "auto-2"}, Assignments: []model.Assignment{
			asn(t, "a1", "c1", "2024-03-01", "2024-03-05", model.AssignmentActive),
		}},
		{Auto: model.Auto{ID: "auto-3"}, Assignments: []model.Assignment{
			asn(t, "a2", "c1", "2024-02-01", "2024-02-20", model.AssignmentCompleted),
		}},
	}
	if got := AvailableCount(snaps, day(t, "2024-03-03"), day(t, "2024-03-08")); got != 2 {
		t.Errorf("AvailableCount = %d, want 2", got)
	}
	if got := AvailableCount(snaps, day(t, "2024-03-06"), day(t, "2024-03-08")); got != 3 {
		t.Errorf("AvailableCount after occupancy = %d, want 3", got)
	}
}

func TestPriorityThreshold(t *testing.T) {
	today := day(t, "2024-03-10")
	in := []model.Assignment{
		// ending has 2 days left, later has 3, over is elapsed, done is completed.
		asn(t, "ending", "c1", "2024-03-01", "2024-03-12", model.AssignmentActive),
		asn(t, "later", "c2", "2024-03-01", "2024-03-13", model.AssignmentActive),
		asn(t, "over", "c3", "2024-02-01", "2024-03-09", model.AssignmentActive),
		asn(t, "done", "c4", "2024-03-01", "2024-03-11", model.AssignmentCompleted),
	}
	got := Priority(in, today, 2)
	if len(got) != 1 || got[0].ID != "ending" {
		t.Fatalf("Priority = %+v, want only 'ending'", got)
	}
	if got := Priority(in, today, 3); len(got) != 2 {
		t.Fatalf("threshold=3 should include 'later', got %+v", got)
	}
}

func TestCheckInvariant(t *testing.T) {
	ok := []model.Assignment{
		asn(t, "a1", "c1", "2024-03-01", "2024-03-05", model.AssignmentActive),
		asn(t, "a2", "c2", "2024-03-06", "2024-03-10", model.AssignmentPrebooked),
	}
	if err := CheckInvariant("auto-1", ok); err != nil {
		t.Fatalf("clean set flagged: %v", err)
	}

	broken := append(ok, asn(t, "a3", "c3", "2024-03-04", "2024-03-07", model.AssignmentActive))
	err := CheckInvariant("auto-1", broken)
	if err == nil {
		t.Fatal("overlapping set not flagged")
	}
	var iv *InvariantViolation
	if !errors.As(err, &iv) {
		t.Fatalf("wrong error type: %T", err)
	}
	if iv.AutoID != "auto-1" {
		t.Errorf("auto id = %s", iv.AutoID)
	}

	// Completed overlaps are history, not violations.
	hist := append(ok, asn(t, "old", "c9", "2024-03-01", "2024-03-20", model.AssignmentCompleted))
	if err := CheckInvariant("auto-1", hist); err != nil {
		t.Fatalf("completed overlap flagged: %v", err)
	}
}
