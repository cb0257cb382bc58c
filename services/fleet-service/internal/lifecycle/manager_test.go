package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
)

func date(t *testing.T, y int, m time.Month, d int) time.Time {
	t.Helper()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStatusForBoundary(t *testing.T) {
	today := date(t, 2024, 3, 10)
	if got := statusFor(date(t, 2024, 3, 10), today); got != model.AssignmentActive {
		t.Errorf("start == today: %s, want ACTIVE", got)
	}
	if got := statusFor(date(t, 2024, 3, 9), today); got != model.AssignmentActive {
		t.Errorf("start < today: %s, want ACTIVE", got)
	}
	if got := statusFor(date(t, 2024, 3, 11), today); got != model.AssignmentPrebooked {
		t.Errorf("start > today: %s, want PREBOOKED", got)
	}
}

func TestNewAssignmentComputesDays(t *testing.T) {
	company := model.Company{ID: "c1", Name: "Acme"}
	a := newAssignment("auto-1", company, date(t, 2024, 3, 1), date(t, 2024, 3, 10), date(t, 2024, 2, 1))
	if a.Days != 10 {
		t.Errorf("days = %d, want 10", a.Days)
	}
	if a.Status != model.AssignmentPrebooked {
		t.Errorf("status = %s, want PREBOOKED", a.Status)
	}
	if a.CompanyName != "Acme" {
		t.Errorf("company name not denormalized: %q", a.CompanyName)
	}
}

func TestValidationErrorDetection(t *testing.T) {
	err := error(&ValidationError{Reason: "nope"})
	if !IsValidationError(err) {
		t.Error("IsValidationError(ValidationError) = false")
	}
	if IsValidationError(errors.New("boom")) {
		t.Error("IsValidationError(plain error) = true")
	}
	if IsValidationError(ErrNotFound) {
		t.Error("IsValidationError(ErrNotFound) = true")
	}
}

func TestWithoutAndReplaceAssignment(t *testing.T) {
	list := []model.Assignment{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	if got := withoutAssignment(list, "b"); len(got) != 2 || got[1].ID != "c" {
		t.Errorf("withoutAssignment = %+v", got)
	}
	repl := replaceAssignment(list, model.Assignment{ID: "b", CompanyID: "x"})
	if repl[1].CompanyID != "x" {
		t.Errorf("replaceAssignment did not swap: %+v", repl)
	}
}

func TestFinishReplace(t *testing.T) {
	booked := model.Assignment{ID: "a1", AutoID: "auto-1", CompanyID: "c1"}
	ok := finishReplace(ReplaceResult{
		AutoID:     "auto-1",
		AutoNo:     "KA01AA5555",
		Displaced:  3,
		Assignment: booked,
	}, nil)
	if ok.Err != "" || ok.Displaced != 3 || ok.Assignment.ID != "a1" {
		t.Fatalf("success outcome mangled: %+v", ok)
	}

	// The transaction rolled back, so nothing was displaced and nothing was
	// created, whatever the in-flight result had accumulated.
	rejected := finishReplace(ReplaceResult{
		AutoID:     "auto-1",
		AutoNo:     "KA01AA5555",
		Displaced:  3,
		Assignment: booked,
	}, &ValidationError{Reason: "Start date must be today or later."})
	if rejected.Displaced != 0 {
		t.Errorf("displaced = %d after rollback, want 0", rejected.Displaced)
	}
	if rejected.Assignment.ID != "" {
		t.Errorf("assignment survived rollback: %+v", rejected.Assignment)
	}
	if rejected.Err != "Start date must be today or later." {
		t.Errorf("err = %q, want the rejection reason", rejected.Err)
	}
	if rejected.AutoID != "auto-1" || rejected.AutoNo != "KA01AA5555" {
		t.Errorf("auto identity lost: %+v", rejected)
	}

	missing := finishReplace(ReplaceResult{AutoID: "auto-2", Displaced: 1}, ErrNotFound)
	if missing.Err != "auto not found" || missing.Displaced != 0 {
		t.Errorf("not-found outcome = %+v", missing)
	}
}
