// Package dateutil holds the day-granularity date math every scheduling
// decision goes through. All comparisons are calendar-day comparisons in UTC;
// raw timestamps are never compared with time-of-day intact.
package dateutil

import (
	"fmt"
	"math"
	"time"
)

const dayLayout = "2006-01-02"

// Normalize strips time-of-day, returning midnight UTC of t's calendar day.
func Normalize(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD wire date into a normalized UTC day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return Normalize(t).Format(dayLayout)
}

// InclusiveDays counts the calendar days covered by [start, end], both ends
// included. A same-day range counts 1. The count is negative-safe for
// inverted ranges so callers can reject them.
func InclusiveDays(start, end time.Time) int {
	diff := Normalize(end).Sub(Normalize(start))
	return int(math.Floor(diff.Hours()/24)) + 1
}

// DaysRemaining is the number of days from today until end, zero when today is
// the last day, negative once the range has elapsed.
func DaysRemaining(end, today time.Time) int {
	diff := Normalize(end).Sub(Normalize(today))
	return int(math.Ceil(diff.Hours() / 24))
}

// AddDays shifts a date by n calendar days. n may be zero or negative.
func AddDays(t time.Time, n int) time.Time {
	return Normalize(t).AddDate(0, 0, n)
}

// IsPriority reports whether end falls within threshold days of today.
// An already-elapsed range is never priority.
func IsPriority(end, today time.Time, threshold int) bool {
	rem := DaysRemaining(end, today)
	return rem >= 0 && rem <= threshold
}

// DefaultPriorityThreshold is the number of remaining days at or under which
// an assignment is surfaced as expiring soon.
const DefaultPriorityThreshold = 2
