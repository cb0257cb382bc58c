package allocation

import (
	"time"

	"github.com/adfleet/adfleet/services/fleet-service/internal/dateutil"
	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
)

// Canonical user-facing rejection reasons. These strings surface verbatim in
// API responses; do not reword them.
const (
	ReasonDatesOver     = "Selected dates are already over. Auto cannot be assigned."
	ReasonStartInPast   = "Start date must be today or later."
	ReasonAlreadyBooked = "This auto is already working for or pre-assigned to another company during the selected dates."
	ReasonInvalidRange  = "End date must be on or after the start date."
)

// AutoSnapshot is an auto together with its full assignment list, as read in
// one consistent snapshot. The engine never queries storage itself.
type AutoSnapshot struct {
	Auto        model.Auto
	Assignments []model.Assignment
}

// Result is a validation outcome. A rejection is a normal business result,
// not an error.
type Result struct {
	OK     bool
	Reason string
}

type BulkError struct {
	AutoID string
	AutoNo string
	Reason string
}

type BulkResult struct {
	AllValid bool
	Errors   []BulkError
}

func accept() Result         { return Result{OK: true} }
func reject(r string) Result { return Result{Reason: r} }

// Validate decides whether [start,end] can be booked on the snapshot's auto.
// The range itself must be well formed (start <= end, so a booking always
// spans at least one day); then rules run in order and the first failure
// wins:
//
//  1. the range must not already be over
//  2. an idle auto cannot be backdated
//  3. a busy auto's latest-start occupancy must end strictly before start
//     (no same-day hand-off)
//  4. a full overlap sweep over every blocking assignment, covering shapes
//     rule 3's latest-start heuristic misses
func Validate(snap AutoSnapshot, start, end, today time.Time) Result {
	start, end = dateutil.Normalize(start), dateutil.Normalize(end)
	today = dateutil.Normalize(today)

	if end.Before(start) {
		return reject(ReasonInvalidRange)
	}
	if end.Before(today) {
		return reject(ReasonDatesOver)
	}

	latest, busy := latestStartBlocking(snap.Assignments)
	if !busy {
		if start.Before(today) {
			return reject(ReasonStartInPast)
		}
		return accept()
	}

	if !start.After(dateutil.Normalize(latest.EndDate)) {
		return reject(ReasonAlreadyBooked)
	}

	if hits := FindOverlaps(start, end, snap.Assignments, ""); len(hits) > 0 {
		return reject(ReasonAlreadyBooked)
	}
	return accept()
}

// ValidateBulk validates every snapshot independently and accumulates the
// complete failure list; it never stops at the first rejection. Callers only
// create when Errors is empty.
func ValidateBulk(snaps []AutoSnapshot, start, end, today time.Time) BulkResult {
	res := BulkResult{AllValid: true}
	for _, s := range snaps {
		if r := Validate(s, start, end, today); !r.OK {
			res.AllValid = false
			res.Errors = append(res.Errors, BulkError{
				AutoID: s.Auto.ID,
				AutoNo: s.Auto.AutoNo,
				Reason: r.Reason,
			})
		}
	}
	return res
}

// latestStartBlocking picks the blocking assignment with the latest start
// date, the nominal current occupancy of a busy auto.
func latestStartBlocking(assignments []model.Assignment) (model.Assignment, bool) {
	var latest model.Assignment
	found := false
	for _, a := range assignments {
		if !a.Status.Blocks() {
			continue
		}
		if !found || dateutil.Normalize(a.StartDate).After(dateutil.Normalize(latest.StartDate)) {
			latest = a
			found = true
		}
	}
	return latest, found
}
