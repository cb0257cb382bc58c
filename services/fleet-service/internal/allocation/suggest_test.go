package allocation

import (
	"testing"

	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
)

func TestSuggestPrefersNeverBooked(t *testing.T) {
	// Area has 2 never-booked autos and 5 with bookings that end before the
	// window opens.
	var snaps []AutoSnapshot
	snaps = append(snaps,
		AutoSnapshot{Auto: model.Auto{ID: "fresh-1"}},
		AutoSnapshot{Auto: model.Auto{ID: "fresh-2"}},
	)
	for _, id := range []string{"used-1", "used-2", "used-3", "used-4", "used-5"} {
		snaps = append(snaps, AutoSnapshot{
			Auto: model.Auto{ID: id},
			Assignments: []model.Assignment{
				asn(t, id+"-old", "c1", "2024-03-10", "2024-03-20", model.AssignmentActive),
			},
		})
	}

	s := Suggest(day(t, "2024-04-01"), 5, 3, snaps)
	if !s.WindowEnd.Equal(day(t, "2024-04-05")) {
		t.Fatalf("window end = %s, want 2024-04-05", s.WindowEnd)
	}
	want := []string{"fresh-1", "fresh-2", "used-1"}
	if len(s.Selected) != len(want) {
		t.Fatalf("selected = %v, want %v", s.Selected, want)
	}
	for i := range want {
		if s.Selected[i] != want[i] {
			t.Fatalf("selected = %v, want %v", s.Selected, want)
		}
	}
}

func TestSuggestExcludesOverlapping(t *testing.T) {
	snaps := []AutoSnapshot{
		{Auto: model.Auto{ID: "busy"}, Assignments: []model.Assignment{
			asn(t, "a1", "c1", "2024-04-03", "2024-04-10", model.AssignmentPrebooked),
		}},
		{Auto: model.Auto{ID: "free"}, Assignments: []model.Assignment{
			asn(t, "a2", "c1", "2024-03-01", "2024-03-05", model.AssignmentCompleted),
		}},
	}
	s := Suggest(day(t, "2024-04-01"), 5, 5, snaps)
	if len(s.Ranked) != 1 || s.Ranked[0].Snapshot.Auto.ID != "free" {
		t.Fatalf("ranked = %+v, want only 'free'", s.Ranked)
	}
	if s.Ranked[0].Classification != ClassFreeInWindow {
		t.Errorf("classification = %s", s.Ranked[0].Classification)
	}
	if len(s.Selected) != 1 {
		t.Errorf("selected = %v", s.Selected)
	}
}

func TestSuggestStableInputOrder(t *testing.T) {
	snaps := []AutoSnapshot{
		{Auto: model.Auto{ID: "z"}},
		{Auto: model.Auto{ID: "a"}},
		{Auto: model.Auto{ID: "m"}},
	}
	s := Suggest(day(t, "2024-04-01"), 3, 2, snaps)
	if s.Selected[0] != "z" || s.Selected[1] != "a" {
		t.Fatalf("selection re-ordered: %v", s.Selected)
	}
}

func TestSuggestOneDayWindow(t *testing.T) {
	snaps := []AutoSnapshot{{Auto: model.Auto{ID: "auto-1"}}}
	s := Suggest(day(t, "2024-04-01"), 1, 1, snaps)
	if !s.WindowStart.Equal(s.WindowEnd) {
		t.Fatalf("one-day window should collapse: %s..%s", s.WindowStart, s.WindowEnd)
	}
}
