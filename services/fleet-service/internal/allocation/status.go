package allocation

import (
	"fmt"
	"sort"
	"time"

	"github.com/adfleet/adfleet/services/fleet-service/internal/dateutil"
	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
)

// InvariantViolation reports two blocking assignments on the same auto that
// share a calendar day. It signals data corruption or a lost race, not a
// normal booking conflict, and aborts the operation that found it.
type InvariantViolation struct {
	AutoID  string
	FirstID string
	OtherID string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("overlap invariant broken on auto %s: assignments %s and %s overlap", e.AutoID, e.FirstID, e.OtherID)
}

// CheckInvariant audits the pairwise non-overlap of blocking assignments.
func CheckInvariant(autoID string, assignments []model.Assignment) error {
	var blocking []model.Assignment
	for _, a := range assignments {
		if a.Status.Blocks() {
			blocking = append(blocking, a)
		}
	}
	sort.Slice(blocking, func(i, j int) bool {
		return blocking[i].StartDate.Before(blocking[j].StartDate)
	})
	for i := 1; i < len(blocking); i++ {
		prev, cur := blocking[i-1], blocking[i]
		if Overlaps(prev.StartDate, prev.EndDate, cur.StartDate, cur.EndDate) {
			return &InvariantViolation{AutoID: autoID, FirstID: prev.ID, OtherID: cur.ID}
		}
	}
	return nil
}

// DeriveStatus computes an auto's status from its assignment set: ASSIGNED if
// the earliest blocking assignment has started, PRE_ASSIGNED if it is still in
// the future, IDLE with none. The stored column is write-time metadata kept in
// sync by the lifecycle layer; reads that care call this instead.
func DeriveStatus(assignments []model.Assignment, today time.Time) model.AutoStatus {
	today = dateutil.Normalize(today)
	earliest, found := earliestStartBlocking(assignments)
	if !found {
		return model.AutoIdle
	}
	if !dateutil.Normalize(earliest.StartDate).After(today) {
		return model.AutoAssigned
	}
	return model.AutoPreAssigned
}

func earliestStartBlocking(assignments []model.Assignment) (model.Assignment, bool) {
	var earliest model.Assignment
	found := false
	for _, a := range assignments {
		if !a.Status.Blocks() {
			continue
		}
		if !found || dateutil.Normalize(a.StartDate).Before(dateutil.Normalize(earliest.StartDate)) {
			earliest = a
			found = true
		}
	}
	return earliest, found
}

// AvailableCount counts the snapshots with no blocking assignment overlapping
// [start,end].
func AvailableCount(snaps []AutoSnapshot, start, end time.Time) int {
	n := 0
	for _, s := range snaps {
		if len(FindOverlaps(start, end, s.Assignments, "")) == 0 {
			n++
		}
	}
	return n
}

// Priority filters blocking assignments down to those expiring within
// threshold days of today.
func Priority(assignments []model.Assignment, today time.Time, threshold int) []model.Assignment {
	var out []model.Assignment
	for _, a := range assignments {
		if a.Status.Blocks() && dateutil.IsPriority(a.EndDate, today, threshold) {
			out = append(out, a)
		}
	}
	return out
}
