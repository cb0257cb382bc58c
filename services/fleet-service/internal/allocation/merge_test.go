package allocation

import (
	"testing"

	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
)

func TestMergeConsecutiveSameCompanyAdjacent(t *testing.T) {
	in := []model.Assignment{
		asn(t, "a1", "c1", "2024-03-01", "2024-03-05", model.AssignmentActive),
		asn(t, "a2", "c1", "2024-03-06", "2024-03-10", model.AssignmentPrebooked),
	}
	got := MergeConsecutive(in)
	if len(got) != 1 {
		t.Fatalf("got %d spans, want 1", len(got))
	}
	span := got[0]
	if !span.StartDate.Equal(day(t, "2024-03-01")) || !span.EndDate.Equal(day(t, "2024-03-10")) {
		t.Errorf("span = %s..%s", span.StartDate, span.EndDate)
	}
	if span.Days != 10 {
		t.Errorf("days = %d, want 10", span.Days)
	}
	if len(span.SourceIDs) != 2 {
		t.Errorf("source ids = %v", span.SourceIDs)
	}
	if span.Status != model.AssignmentActive {
		t.Errorf("status = %s, want ACTIVE", span.Status)
	}
}

func TestMergeConsecutiveBreaksOnGapOrCompany(t *testing.T) {
	cases := []struct {
		name string
		in   []model.Assignment
		want int
	}{
		{
			"one-day gap",
			[]model.Assignment{
				asn(t, "a1", "c1", "2024-03-01", "2024-03-05", model.AssignmentActive),
				asn(t, "a2", "c1", "2024-03-07", "2024-03-10", model.AssignmentPrebooked),
			},
			2,
		},
		{
			"different company",
			[]model.Assignment{
				asn(t, "a1", "c1", "2024-03-01", "2024-03-05", model.AssignmentActive),
				asn(t, "a2", "c2", "2024-03-06", "2024-03-10", model.AssignmentPrebooked),
			},
			2,
		},
		{
			"chain of three",
			[]model.Assignment{
				asn(t, "a1", "c1", "2024-03-01", "2024-03-05", model.AssignmentActive),
				asn(t, "a2", "c1", "2024-03-06", "2024-03-08", model.AssignmentPrebooked),
				asn(t, "a3", "c1", "2024-03-09", "2024-03-12", model.AssignmentPrebooked),
			},
			1,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := MergeConsecutive(c.in); len(got) != c.want {
				t.Errorf("got %d spans, want %d", len(got), c.want)
			}
		})
	}
}

func TestMergeConsecutiveUnsortedInput(t *testing.T) {
	in := []model.Assignment{
		asn(t, "a2", "c1", "2024-03-06", "2024-03-10", model.AssignmentPrebooked),
		asn(t, "a1", "c1", "2024-03-01", "2024-03-05", model.AssignmentActive),
	}
	got := MergeConsecutive(in)
	if len(got) != 1 || got[0].Days != 10 {
		t.Fatalf("unsorted input not merged: %+v", got)
	}
}

func TestMergeConsecutiveIdempotent(t *testing.T) {
	in := []model.Assignment{
		asn(t, "a1", "c1", "2024-03-01", "2024-03-05", model.AssignmentActive),
		asn(t, "a2", "c1", "2024-03-06", "2024-03-10", model.AssignmentPrebooked),
		asn(t, "a3", "c2", "2024-03-12", "2024-03-14", model.AssignmentPrebooked),
	}
	first := MergeConsecutive(in)

	// Feed the merged spans back in as if they were stored assignments.
	var again []model.Assignment
	for _, m := range first {
		again = append(again, model.Assignment{
			ID:          m.SourceIDs[0],
			AutoID:      m.AutoID,
			CompanyID:   m.CompanyID,
			CompanyName: m.CompanyName,
			StartDate:   m.StartDate,
			EndDate:     m.EndDate,
			Days:        m.Days,
			Status:      m.Status,
		})
	}
	second := MergeConsecutive(again)
	if len(second) != len(first) {
		t.Fatalf("re-merge changed span count: %d -> %d", len(first), len(second))
	}
	for i := range first {
		if !second[i].StartDate.Equal(first[i].StartDate) || !second[i].EndDate.Equal(first[i].EndDate) || second[i].Days != first[i].Days {
			t.Errorf("span %d changed on re-merge: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestCurrentSpanEarliestOnly(t *testing.T) {
	in := []model.Assignment{
		asn(t, "later", "c2", "2024-04-01", "2024-04-05", model.AssignmentPrebooked),
		asn(t, "cur", "c1", "2024-03-01", "2024-03-05", model.AssignmentActive),
		asn(t, "cur2", "c1", "2024-03-06", "2024-03-10", model.AssignmentPrebooked),
		asn(t, "done", "c3", "2024-01-01", "2024-01-31", model.AssignmentCompleted),
	}
	span, ok := CurrentSpan(in)
	if !ok {
		t.Fatal("expected a current span")
	}
	if span.CompanyID != "c1" || !span.EndDate.Equal(day(t, "2024-03-10")) {
		t.Fatalf("current span = %+v", span)
	}

	if _, ok := CurrentSpan([]model.Assignment{asn(t, "done", "c3", "2024-01-01", "2024-01-31", model.AssignmentCompleted)}); ok {
		t.Fatal("completed-only history must yield no current span")
	}
}
