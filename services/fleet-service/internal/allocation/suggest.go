package allocation

import (
	"time"

	"github.com/adfleet/adfleet/services/fleet-service/internal/dateutil"
)

type Classification string

const (
	// ClassNeverBooked ranks first: the auto has no assignment history at all.
	ClassNeverBooked Classification = "IDLE_NEVER_ASSIGNED"
	// ClassFreeInWindow ranks second: booked before, but free for the window.
	ClassFreeInWindow Classification = "FREE_FOR_WINDOW"
)

type Candidate struct {
	Snapshot       AutoSnapshot
	Classification Classification
}

type Suggestion struct {
	WindowStart time.Time
	WindowEnd   time.Time
	Ranked      []Candidate
	Selected    []string
}

// Suggest ranks the snapshots for a bulk request of autosRequired autos over
// daysRequired days from start. Never-booked autos come first, then autos
// that are free for the window; anything with an overlapping blocking
// assignment is excluded. Ties keep input order; there is no secondary sort.
func Suggest(start time.Time, daysRequired, autosRequired int, snaps []AutoSnapshot) Suggestion {
	windowStart := dateutil.Normalize(start)
	windowEnd := dateutil.AddDays(windowStart, daysRequired-1)

	var never, free []Candidate
	for _, s := range snaps {
		if len(s.Assignments) == 0 {
			never = append(never, Candidate{Snapshot: s, Classification: ClassNeverBooked})
			continue
		}
		if len(FindOverlaps(windowStart, windowEnd, s.Assignments, "")) == 0 {
			free = append(free, Candidate{Snapshot: s, Classification: ClassFreeInWindow})
		}
	}

	if autosRequired < 0 {
		autosRequired = 0
	}
	ranked := append(never, free...)
	selected := make([]string, 0, autosRequired)
	for _, c := range ranked {
		if len(selected) == autosRequired {
			break
		}
		selected = append(selected, c.Snapshot.Auto.ID)
	}

	return Suggestion{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Ranked:      ranked,
		Selected:    selected,
	}
}
