package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adfleet/adfleet/services/fleet-service/internal/allocation"
	"github.com/adfleet/adfleet/services/fleet-service/internal/dateutil"
)

func TestParseRangeExplicitEnd(t *testing.T) {
	start, end, err := parseRange("2024-03-01", "2024-03-10", 0)
	if err != nil {
		t.Fatalf("parseRange: %v", err)
	}
	if dateutil.InclusiveDays(start, end) != 10 {
		t.Errorf("range = %s..%s", start, end)
	}
}

func TestParseRangeDayCount(t *testing.T) {
	start, end, err := parseRange("2024-03-01", "", 5)
	if err != nil {
		t.Fatalf("parseRange: %v", err)
	}
	if got := dateutil.FormatDate(end); got != "2024-03-05" {
		t.Errorf("end = %s, want 2024-03-05 (5 days inclusive of start)", got)
	}
	if dateutil.InclusiveDays(start, end) != 5 {
		t.Errorf("range = %s..%s", start, end)
	}

	// One-day booking starts and ends the same day.
	start, end, err = parseRange("2024-03-01", "", 1)
	if err != nil {
		t.Fatalf("parseRange: %v", err)
	}
	if !start.Equal(end) {
		t.Errorf("1-day range = %s..%s", start, end)
	}
}

func TestParseRangeRejectsBadInput(t *testing.T) {
	cases := []struct {
		start, end string
		days       int
	}{
		{"", "", 5},
		{"2024-03-01", "", 0},
		{"2024-03-01", "", -3},
		{"2024-03-01", "not-a-date", 0},
	}
	for _, c := range cases {
		if _, _, err := parseRange(c.start, c.end, c.days); err == nil {
			t.Errorf("parseRange(%q, %q, %d): expected error", c.start, c.end, c.days)
		}
	}
}

func TestRejectionJSONCarriesCanonicalMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	rejectionJSON(rec, allocation.ReasonAlreadyBooked)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if body["error"] != "This auto is already working for or pre-assigned to another company during the selected dates." {
		t.Fatalf("message altered: %q", body["error"])
	}
}

func TestAssignmentEndpointsRejectWrongMethod(t *testing.T) {
	h := &AssignmentHandler{}
	cases := []struct {
		handler http.HandlerFunc
		method  string
	}{
		{h.BulkCreate, http.MethodGet},
		{h.BulkReplace, http.MethodGet},
		{h.Update, http.MethodGet},
		{h.Delete, http.MethodGet},
		{h.Priority, http.MethodPost},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(c.method, "/x", strings.NewReader("{}"))
		c.handler(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want 405", c.method, rec.Code)
		}
	}
}
