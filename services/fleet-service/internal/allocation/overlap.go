// Package allocation implements the interval-allocation engine: overlap
// detection, booking validation, consecutive-span merging, availability and
// priority queries, and ticket fulfillment suggestions. Everything here is a
// pure function over a snapshot of an auto's assignments; persistence and
// locking live in the lifecycle layer.
package allocation

import (
	"time"

	"github.com/adfleet/adfleet/services/fleet-service/internal/dateutil"
	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
)

// Overlaps reports whether the inclusive ranges [aStart,aEnd] and
// [bStart,bEnd] share at least one calendar day. Adjacency (one range starting
// the day after the other ends) is not overlap, which is what permits
// back-to-back bookings.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	aStart, aEnd = dateutil.Normalize(aStart), dateutil.Normalize(aEnd)
	bStart, bEnd = dateutil.Normalize(bStart), dateutil.Normalize(bEnd)
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}

// FindOverlaps returns the ACTIVE/PREBOOKED assignments whose range overlaps
// [start,end]. Completed assignments never block. excludeID skips the
// assignment being edited; pass "" when creating.
func FindOverlaps(start, end time.Time, existing []model.Assignment, excludeID string) []model.Assignment {
	var hits []model.Assignment
	for _, a := range existing {
		if a.ID == excludeID && excludeID != "" {
			continue
		}
		if !a.Status.Blocks() {
			continue
		}
		if Overlaps(start, end, a.StartDate, a.EndDate) {
			hits = append(hits, a)
		}
	}
	return hits
}
