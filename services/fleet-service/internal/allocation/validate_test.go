package allocation

import (
	"testing"

	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
)

func idleAuto(id string) model.Auto {
	return model.Auto{ID: id, AutoNo: "KA01AA5555", Status: model.AutoIdle}
}

func TestValidateRejectsInvertedRange(t *testing.T) {
	// Both dates in the future, so neither the elapsed-range rule nor the
	// backdating rule fires; the range shape check must catch it.
	snap := AutoSnapshot{Auto: idleAuto("auto-1")}
	res := Validate(snap, day(t, "2024-05-10"), day(t, "2024-05-01"), day(t, "2024-03-01"))
	if res.OK || res.Reason != ReasonInvalidRange {
		t.Fatalf("got %+v, want rejection %q", res, ReasonInvalidRange)
	}

	// Same-day bookings stay valid.
	res = Validate(snap, day(t, "2024-05-01"), day(t, "2024-05-01"), day(t, "2024-03-01"))
	if !res.OK {
		t.Fatalf("single-day booking rejected: %q", res.Reason)
	}

	bulk := ValidateBulk([]AutoSnapshot{snap}, day(t, "2024-05-10"), day(t, "2024-05-01"), day(t, "2024-03-01"))
	if bulk.AllValid || len(bulk.Errors) != 1 || bulk.Errors[0].Reason != ReasonInvalidRange {
		t.Fatalf("bulk = %+v, want one %q error", bulk, ReasonInvalidRange)
	}
}

func TestValidateRejectsElapsedRange(t *testing.T) {
	snap := AutoSnapshot{Auto: idleAuto("auto-1")}
	res := Validate(snap, day(t, "2024-02-01"), day(t, "2024-02-05"), day(t, "2024-03-10"))
	if res.OK {
		t.Fatal("expected rejection")
	}
	if res.Reason != ReasonDatesOver {
		t.Fatalf("reason = %q, want %q", res.Reason, ReasonDatesOver)
	}
}

func TestValidateIdleAutoCannotBackdate(t *testing.T) {
	snap := AutoSnapshot{Auto: idleAuto("auto-1")}
	res := Validate(snap, day(t, "2024-03-08"), day(t, "2024-03-12"), day(t, "2024-03-10"))
	if res.OK || res.Reason != ReasonStartInPast {
		t.Fatalf("got %+v, want rejection %q", res, ReasonStartInPast)
	}

	// Starting exactly today is fine.
	res = Validate(snap, day(t, "2024-03-10"), day(t, "2024-03-12"), day(t, "2024-03-10"))
	if !res.OK {
		t.Fatalf("start == today rejected: %q", res.Reason)
	}
}

func TestValidateBusyAutoNoSameDayHandOff(t *testing.T) {
	snap := AutoSnapshot{
		Auto: idleAuto("auto-1"),
		Assignments: []model.Assignment{
			asn(t, "a1", "c1", "2024-03-01", "2024-03-05", model.AssignmentActive),
		},
	}
	today := day(t, "2024-03-02")

	// Starting on the occupancy's last day is a same-day hand-off.
	res := Validate(snap, day(t, "2024-03-05"), day(t, "2024-03-09"), today)
	if res.OK || res.Reason != ReasonAlreadyBooked {
		t.Fatalf("got %+v, want rejection %q", res, ReasonAlreadyBooked)
	}

	// The day after is adjacency, which is allowed.
	res = Validate(snap, day(t, "2024-03-06"), day(t, "2024-03-10"), today)
	if !res.OK {
		t.Fatalf("adjacent booking rejected: %q", res.Reason)
	}
}

func TestValidateFullSweepCatchesAnomalousShapes(t *testing.T) {
	// An earlier assignment runs past the latest-start one, so rule 3's
	// latest-start heuristic alone would accept 2024-03-13 onward.
	snap := AutoSnapshot{
		Auto: idleAuto("auto-1"),
		Assignments: []model.Assignment{
			asn(t, "long", "c1", "2024-03-01", "2024-03-20", model.AssignmentActive),
			asn(t, "short", "c2", "2024-03-10", "2024-03-12", model.AssignmentPrebooked),
		},
	}
	res := Validate(snap, day(t, "2024-03-15"), day(t, "2024-03-18"), day(t, "2024-03-01"))
	if res.OK || res.Reason != ReasonAlreadyBooked {
		t.Fatalf("got %+v, want rejection %q", res, ReasonAlreadyBooked)
	}
}

func TestValidateCompletedAssignmentsDoNotBlock(t *testing.T) {
	snap := AutoSnapshot{
		Auto: idleAuto("auto-1"),
		Assignments: []model.Assignment{
			asn(t, "done", "c1", "2024-03-01", "2024-03-31", model.AssignmentCompleted),
		},
	}
	res := Validate(snap, day(t, "2024-03-10"), day(t, "2024-03-15"), day(t, "2024-03-10"))
	if !res.OK {
		t.Fatalf("completed history blocked a new booking: %q", res.Reason)
	}
}

func TestValidateBulkAccumulatesAllFailures(t *testing.T) {
	today := day(t, "2024-03-01")
	free := AutoSnapshot{Auto: idleAuto("auto-1")}
	busy := AutoSnapshot{
		Auto: model.Auto{ID: "auto-2", AutoNo: "KA02BB1111", Status: model.AutoAssigned},
		Assignments: []model.Assignment{
			asn(t, "a1", "c9", "2024-03-03", "2024-03-08", model.AssignmentActive),
		},
	}
	alsoFree := AutoSnapshot{Auto: idleAuto("auto-3")}

	res := ValidateBulk([]AutoSnapshot{free, busy, alsoFree}, day(t, "2024-03-05"), day(t, "2024-03-09"), today)
	if res.AllValid {
		t.Fatal("expected AllValid=false")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("got %d errors, want exactly 1: %+v", len(res.Errors), res.Errors)
	}
	if res.Errors[0].AutoID != "auto-2" || res.Errors[0].Reason != ReasonAlreadyBooked {
		t.Fatalf("unexpected error entry: %+v", res.Errors[0])
	}

	// Two failing autos both show up.
	res = ValidateBulk([]AutoSnapshot{busy, busy}, day(t, "2024-03-05"), day(t, "2024-03-09"), today)
	if len(res.Errors) != 2 {
		t.Fatalf("got %d errors, want 2", len(res.Errors))
	}
}
