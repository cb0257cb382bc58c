package allocation

import (
	"testing"
	"time"

	"github.com/adfleet/adfleet/services/fleet-service/internal/dateutil"
	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := dateutil.ParseDate(s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd string
		want                       bool
	}{
		{"adjacent is not overlap", "2024-01-01", "2024-01-05", "2024-01-06", "2024-01-10", false},
		{"shared boundary day overlaps", "2024-01-01", "2024-01-05", "2024-01-05", "2024-01-10", true},
		{"contained", "2024-01-03", "2024-01-04", "2024-01-01", "2024-01-10", true},
		{"disjoint", "2024-01-01", "2024-01-02", "2024-02-01", "2024-02-02", false},
		{"same-day ranges", "2024-01-01", "2024-01-01", "2024-01-01", "2024-01-01", true},
		{"symmetric", "2024-01-06", "2024-01-10", "2024-01-01", "2024-01-05", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Overlaps(day(t, c.aStart), day(t, c.aEnd), day(t, c.bStart), day(t, c.bEnd))
			if got != c.want {
				t.Errorf("Overlaps = %v, want %v", got, c.want)
			}
		})
	}
}

func TestOverlapsIgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	a := time.Date(2024, 1, 5, 23, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 6, 1, 0, 0, 0, loc) // still Jan 5 in UTC
	if !Overlaps(a, a, b, b) {
		t.Error("same UTC calendar day must overlap regardless of time-of-day")
	}
}

func asn(t *testing.T, id, companyID, start, end string, status model.AssignmentStatus) model.Assignment {
	t.Helper()
	s, e := day(t, start), day(t, end)
	return model.Assignment{
		ID:          id,
		AutoID:      "auto-1",
		CompanyID:   companyID,
		CompanyName: "Acme " + companyID,
		StartDate:   s,
		EndDate:     e,
		Days:        dateutil.InclusiveDays(s, e),
		Status:      status,
	}
}

func TestFindOverlaps(t *testing.T) {
	existing := []model.Assignment{
		asn(t, "a1", "c1", "2024-03-01", "2024-03-05", model.AssignmentActive),
		asn(t, "a2", "c2", "2024-03-10", "2024-03-15", model.AssignmentPrebooked),
		asn(t, "a3", "c1", "2024-02-01", "2024-02-28", model.AssignmentCompleted),
	}

	hits := FindOverlaps(day(t, "2024-03-04"), day(t, "2024-03-11"), existing, "")
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}

	// Completed assignments never block, even on a direct hit.
	hits = FindOverlaps(day(t, "2024-02-10"), day(t, "2024-02-12"), existing, "")
	if len(hits) != 0 {
		t.Fatalf("completed assignment blocked: %v", hits)
	}

	// Excluding the assignment under edit frees its own range.
	hits = FindOverlaps(day(t, "2024-03-02"), day(t, "2024-03-04"), existing, "a1")
	if len(hits) != 0 {
		t.Fatalf("exclude id not honored: %v", hits)
	}
}
