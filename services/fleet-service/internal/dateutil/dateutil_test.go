package dateutil

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNormalizeStripsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	// 23:45 IST on March 1 is 18:15 UTC the same day.
	in := time.Date(2024, 3, 1, 23, 45, 0, 0, loc)
	got := Normalize(in)
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Normalize(%v) = %v, want %v", in, got, want)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "2024-13-01", "01-01-2024", "2024/01/01", "yesterday"} {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("ParseDate(%q): expected error", s)
		}
	}
}

func TestInclusiveDays(t *testing.T) {
	cases := []struct {
		start, end string
		want       int
	}{
		{"2024-01-01", "2024-01-01", 1},
		{"2024-01-01", "2024-01-10", 10},
		{"2024-02-28", "2024-03-01", 3}, // leap year
		{"2024-01-10", "2024-01-01", -8},
	}
	for _, c := range cases {
		if got := InclusiveDays(day(c.start), day(c.end)); got != c.want {
			t.Errorf("InclusiveDays(%s, %s) = %d, want %d", c.start, c.end, got, c.want)
		}
	}
}

func TestDaysRemaining(t *testing.T) {
	today := day("2024-03-10")
	cases := []struct {
		end  string
		want int
	}{
		{"2024-03-10", 0},
		{"2024-03-12", 2},
		{"2024-03-09", -1},
		{"2024-04-09", 30},
	}
	for _, c := range cases {
		if got := DaysRemaining(day(c.end), today); got != c.want {
			t.Errorf("DaysRemaining(%s) = %d, want %d", c.end, got, c.want)
		}
	}
}

func TestAddDays(t *testing.T) {
	if got := AddDays(day("2024-03-01"), 0); !got.Equal(day("2024-03-01")) {
		t.Errorf("AddDays n=0 = %v", got)
	}
	if got := AddDays(day("2024-03-01"), -1); !got.Equal(day("2024-02-29")) {
		t.Errorf("AddDays n=-1 = %v", got)
	}
	if got := AddDays(day("2024-12-30"), 5); !got.Equal(day("2025-01-04")) {
		t.Errorf("AddDays across year = %v", got)
	}
}

func TestIsPriorityBoundary(t *testing.T) {
	today := day("2024-03-10")
	cases := []struct {
		end  string
		want bool
	}{
		{"2024-03-12", true},  // remaining == threshold
		{"2024-03-13", false}, // remaining == threshold+1
		{"2024-03-10", true},  // last day
		{"2024-03-09", false}, // elapsed
	}
	for _, c := range cases {
		if got := IsPriority(day(c.end), today, DefaultPriorityThreshold); got != c.want {
			t.Errorf("IsPriority(%s) = %v, want %v", c.end, got, c.want)
		}
	}
}
