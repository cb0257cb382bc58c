package allocation

import (
	"sort"
	"time"

	"github.com/adfleet/adfleet/services/fleet-service/internal/dateutil"
	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
)

// Merged is one logical span produced by collapsing back-to-back assignments
// of the same company. It is a display view, never persisted.
type Merged struct {
	AutoID      string
	CompanyID   string
	CompanyName string
	StartDate   time.Time
	EndDate     time.Time
	Days        int
	Status      model.AssignmentStatus
	SourceIDs   []string
}

// MergeConsecutive collapses exactly-adjacent same-company assignments into
// continuous spans. Input order does not matter; output is sorted ascending by
// start date. Merging an already-merged list is a no-op.
func MergeConsecutive(assignments []model.Assignment) []Merged {
	if len(assignments) == 0 {
		return nil
	}

	sorted := make([]model.Assignment, len(assignments))
	copy(sorted, assignments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return dateutil.Normalize(sorted[i].StartDate).Before(dateutil.Normalize(sorted[j].StartDate))
	})

	var out []Merged
	cur := spanOf(sorted[0])
	for _, a := range sorted[1:] {
		next := dateutil.Normalize(a.StartDate)
		if a.CompanyID == cur.CompanyID && dateutil.AddDays(cur.EndDate, 1).Equal(next) {
			cur.EndDate = dateutil.Normalize(a.EndDate)
			cur.Days += a.Days
			cur.SourceIDs = append(cur.SourceIDs, a.ID)
			if a.Status == model.AssignmentActive {
				cur.Status = model.AssignmentActive
			}
			continue
		}
		out = append(out, cur)
		cur = spanOf(a)
	}
	return append(out, cur)
}

func spanOf(a model.Assignment) Merged {
	return Merged{
		AutoID:      a.AutoID,
		CompanyID:   a.CompanyID,
		CompanyName: a.CompanyName,
		StartDate:   dateutil.Normalize(a.StartDate),
		EndDate:     dateutil.Normalize(a.EndDate),
		Days:        a.Days,
		Status:      a.Status,
		SourceIDs:   []string{a.ID},
	}
}

// CurrentSpan returns the span shown as an auto's current placement: the
// merged span containing the earliest-starting blocking assignment. Later
// non-adjacent or different-company bookings stay in the history list only.
func CurrentSpan(assignments []model.Assignment) (Merged, bool) {
	var blocking []model.Assignment
	for _, a := range assignments {
		if a.Status.Blocks() {
			blocking = append(blocking, a)
		}
	}
	if len(blocking) == 0 {
		return Merged{}, false
	}
	merged := MergeConsecutive(blocking)
	return merged[0], true
}
