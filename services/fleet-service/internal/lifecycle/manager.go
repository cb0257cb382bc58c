// Package lifecycle owns every assignment mutation. Each operation runs in
// one transaction that locks the auto row, re-reads the assignment snapshot,
// validates, mutates, recomputes the auto's cached status from the remaining
// blocking set, writes an outbox event, and commits. The recompute is the
// single place the cached status is ever written, so it cannot diverge from
// the assignment set.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/adfleet/adfleet/libs/db"
	"github.com/adfleet/adfleet/services/fleet-service/internal/allocation"
	"github.com/adfleet/adfleet/services/fleet-service/internal/dateutil"
	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
	"github.com/adfleet/adfleet/services/fleet-service/internal/outbox"
	"github.com/adfleet/adfleet/services/fleet-service/internal/storage"
)

var ErrNotFound = errors.New("not found")

// ValidationError carries a canonical rejection reason. It is an expected
// business outcome, distinct from infrastructure failures.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type Manager struct {
	pool        *db.Pool
	autos       *storage.AutoRepository
	assignments *storage.AssignmentRepository
	companies   *storage.CompanyRepository
	outbox      *outbox.Repository
	logger      *slog.Logger
	now         func() time.Time
}

func NewManager(pool *db.Pool, autos *storage.AutoRepository, assignments *storage.AssignmentRepository, companies *storage.CompanyRepository, ob *outbox.Repository, logger *slog.Logger) *Manager {
	return &Manager{
		pool:        pool,
		autos:       autos,
		assignments: assignments,
		companies:   companies,
		outbox:      ob,
		logger:      logger,
		now:         time.Now,
	}
}

// SetNow overrides the wall clock, for tests.
func (m *Manager) SetNow(now func() time.Time) { m.now = now }

func (m *Manager) today() time.Time { return dateutil.Normalize(m.now()) }

// Create books [start,end] on an auto for a company. The company name is
// denormalized onto the assignment at creation and frozen there.
func (m *Manager) Create(ctx context.Context, autoID, companyID string, start, end time.Time) (model.Assignment, error) {
	company, err := m.companies.Get(ctx, companyID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Assignment{}, ErrNotFound
		}
		return model.Assignment{}, err
	}

	var created model.Assignment
	err = m.pool.WithTx(ctx, func(tx pgx.Tx) error {
		snap, err := m.lockSnapshot(ctx, tx, autoID)
		if err != nil {
			return err
		}

		today := m.today()
		if res := allocation.Validate(snap, start, end, today); !res.OK {
			return &ValidationError{Reason: res.Reason}
		}

		created = newAssignment(autoID, company, start, end, today)
		id, err := m.assignments.Create(ctx, tx, &created)
		if err != nil {
			if storage.IsConflict(err) {
				return &ValidationError{Reason: allocation.ReasonAlreadyBooked}
			}
			return err
		}
		created.ID = id

		snap.Assignments = append(snap.Assignments, created)
		if err := m.recomputeStatus(ctx, tx, snap, today); err != nil {
			return err
		}
		return m.emit(ctx, tx, outbox.TopicAssignmentCreated, created, snap.Auto.AutoNo)
	})
	if err != nil {
		return model.Assignment{}, err
	}
	return created, nil
}

// UpdateParams carries the mutable assignment fields. Nil means unchanged.
type UpdateParams struct {
	StartDate *time.Time
	EndDate   *time.Time
	Status    *model.AssignmentStatus
}

// Update edits an assignment. Date changes re-validate against the auto's
// other assignments; a transition to COMPLETED recomputes the auto's status
// from whatever blocking assignments remain.
func (m *Manager) Update(ctx context.Context, id string, params UpdateParams) (model.Assignment, error) {
	var updated model.Assignment
	err := m.pool.WithTx(ctx, func(tx pgx.Tx) error {
		current, err := m.assignments.GetForUpdate(ctx, tx, id)
		if err != nil {
			if storage.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		snap, err := m.lockSnapshot(ctx, tx, current.AutoID)
		if err != nil {
			return err
		}
		today := m.today()

		next := current
		if params.StartDate != nil {
			next.StartDate = dateutil.Normalize(*params.StartDate)
		}
		if params.EndDate != nil {
			next.EndDate = dateutil.Normalize(*params.EndDate)
		}
		if params.Status != nil {
			next.Status = *params.Status
		}

		datesChanged := params.StartDate != nil || params.EndDate != nil
		if datesChanged {
			others := withoutAssignment(snap.Assignments, id)
			otherSnap := allocation.AutoSnapshot{Auto: snap.Auto, Assignments: others}
			if res := allocation.Validate(otherSnap, next.StartDate, next.EndDate, today); !res.OK {
				return &ValidationError{Reason: res.Reason}
			}
			next.Days = dateutil.InclusiveDays(next.StartDate, next.EndDate)
			if next.Status != model.AssignmentCompleted {
				next.Status = statusFor(next.StartDate, today)
			}
		}

		if err := m.assignments.Update(ctx, tx, &next); err != nil {
			if storage.IsConflict(err) {
				return &ValidationError{Reason: allocation.ReasonAlreadyBooked}
			}
			if storage.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		snap.Assignments = replaceAssignment(snap.Assignments, next)
		if err := m.recomputeStatus(ctx, tx, snap, today); err != nil {
			return err
		}
		updated = next
		return m.emit(ctx, tx, outbox.TopicAssignmentUpdated, next, snap.Auto.AutoNo)
	})
	if err != nil {
		return model.Assignment{}, err
	}
	return updated, nil
}

// Complete marks an assignment COMPLETED.
func (m *Manager) Complete(ctx context.Context, id string) (model.Assignment, error) {
	done := model.AssignmentCompleted
	return m.Update(ctx, id, UpdateParams{Status: &done})
}

// Delete removes an assignment outright. The auto goes back to IDLE only if
// no blocking assignment remains.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.pool.WithTx(ctx, func(tx pgx.Tx) error {
		current, err := m.assignments.GetForUpdate(ctx, tx, id)
		if err != nil {
			if storage.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		snap, err := m.lockSnapshot(ctx, tx, current.AutoID)
		if err != nil {
			return err
		}

		if err := m.assignments.Delete(ctx, tx, id); err != nil {
			if storage.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		snap.Assignments = withoutAssignment(snap.Assignments, id)
		if err := m.recomputeStatus(ctx, tx, snap, m.today()); err != nil {
			return err
		}
		return m.emit(ctx, tx, outbox.TopicAssignmentDeleted, current, snap.Auto.AutoNo)
	})
}

type BulkCreateResult struct {
	AllValid bool
	Errors   []allocation.BulkError
	Created  []model.Assignment
}

// BulkCreate books the same range on several autos, all-or-nothing: every
// auto is validated first and nothing is created unless all pass. Auto rows
// are locked in sorted id order.
func (m *Manager) BulkCreate(ctx context.Context, autoIDs []string, companyID string, start, end time.Time) (BulkCreateResult, error) {
	company, err := m.companies.Get(ctx, companyID)
	if err != nil {
		if storage.IsNotFound(err) {
			return BulkCreateResult{}, ErrNotFound
		}
		return BulkCreateResult{}, err
	}

	ids := make([]string, len(autoIDs))
	copy(ids, autoIDs)
	sort.Strings(ids)

	var result BulkCreateResult
	err = m.pool.WithTx(ctx, func(tx pgx.Tx) error {
		result = BulkCreateResult{}
		snaps := make([]allocation.AutoSnapshot, 0, len(ids))
		for _, autoID := range ids {
			snap, err := m.lockSnapshot(ctx, tx, autoID)
			if err != nil {
				return err
			}
			snaps = append(snaps, snap)
		}

		today := m.today()
		bulk := allocation.ValidateBulk(snaps, start, end, today)
		result.AllValid = bulk.AllValid
		result.Errors = bulk.Errors
		if !bulk.AllValid {
			return nil
		}

		for i := range snaps {
			a := newAssignment(snaps[i].Auto.ID, company, start, end, today)
			id, err := m.assignments.Create(ctx, tx, &a)
			if err != nil {
				if storage.IsConflict(err) {
					return &ValidationError{Reason: allocation.ReasonAlreadyBooked}
				}
				return err
			}
			a.ID = id
			result.Created = append(result.Created, a)

			snaps[i].Assignments = append(snaps[i].Assignments, a)
			if err := m.recomputeStatus(ctx, tx, snaps[i], today); err != nil {
				return err
			}
			if err := m.emit(ctx, tx, outbox.TopicAssignmentCreated, a, snaps[i].Auto.AutoNo); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return BulkCreateResult{}, err
	}
	return result, nil
}

type ReplaceResult struct {
	AutoID     string
	AutoNo     string
	Displaced  int
	Assignment model.Assignment
	Err        string
}

// BulkReplace supersedes every blocking assignment on each auto with one
// fresh booking. Autos are independent: each gets its own transaction, and a
// failure on one never rolls back the others.
func (m *Manager) BulkReplace(ctx context.Context, autoIDs []string, companyID string, start, end time.Time) ([]ReplaceResult, error) {
	company, err := m.companies.Get(ctx, companyID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	results := make([]ReplaceResult, 0, len(autoIDs))
	for _, autoID := range autoIDs {
		res := m.replaceOne(ctx, autoID, company, start, end)
		results = append(results, res)
	}
	return results, nil
}

func (m *Manager) replaceOne(ctx context.Context, autoID string, company model.Company, start, end time.Time) ReplaceResult {
	res := ReplaceResult{AutoID: autoID}
	err := m.pool.WithTx(ctx, func(tx pgx.Tx) error {
		auto, err := m.autos.GetForUpdate(ctx, tx, autoID)
		if err != nil {
			if storage.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}
		res.AutoNo = auto.AutoNo

		displaced, err := m.assignments.DeleteBlockingByAuto(ctx, tx, autoID)
		if err != nil {
			return err
		}
		res.Displaced = displaced

		today := m.today()
		// The slate is clean, but the request itself must still be sane.
		empty := allocation.AutoSnapshot{Auto: auto}
		if vr := allocation.Validate(empty, start, end, today); !vr.OK {
			return &ValidationError{Reason: vr.Reason}
		}

		a := newAssignment(autoID, company, start, end, today)
		id, err := m.assignments.Create(ctx, tx, &a)
		if err != nil {
			return err
		}
		a.ID = id
		res.Assignment = a

		snap := allocation.AutoSnapshot{Auto: auto, Assignments: []model.Assignment{a}}
		if err := m.recomputeStatus(ctx, tx, snap, today); err != nil {
			return err
		}
		return m.emit(ctx, tx, outbox.TopicAssignmentCreated, a, auto.AutoNo)
	})
	return finishReplace(res, err)
}

// finishReplace settles a per-auto replace outcome. On error the transaction
// rolled back, so the displaced count and the created assignment are
// discarded with it; only the error text survives.
func finishReplace(res ReplaceResult, err error) ReplaceResult {
	if err == nil {
		return res
	}
	res.Err = errText(err)
	res.Displaced = 0
	res.Assignment = model.Assignment{}
	return res
}

// lockSnapshot locks the auto row and reads its assignment history inside tx.
// A broken non-overlap invariant aborts the operation before any write.
func (m *Manager) lockSnapshot(ctx context.Context, tx pgx.Tx, autoID string) (allocation.AutoSnapshot, error) {
	auto, err := m.autos.GetForUpdate(ctx, tx, autoID)
	if err != nil {
		if storage.IsNotFound(err) {
			return allocation.AutoSnapshot{}, ErrNotFound
		}
		return allocation.AutoSnapshot{}, err
	}
	assignments, err := m.assignments.ListByAuto(ctx, tx, autoID)
	if err != nil {
		return allocation.AutoSnapshot{}, err
	}
	if err := allocation.CheckInvariant(autoID, assignments); err != nil {
		m.logger.Error("assignment overlap invariant broken", "auto_id", autoID, "err", err)
		return allocation.AutoSnapshot{}, err
	}
	return allocation.AutoSnapshot{Auto: auto, Assignments: assignments}, nil
}

func (m *Manager) recomputeStatus(ctx context.Context, tx pgx.Tx, snap allocation.AutoSnapshot, today time.Time) error {
	status := allocation.DeriveStatus(snap.Assignments, today)
	if status == snap.Auto.Status {
		return nil
	}
	return m.autos.UpdateStatus(ctx, tx, snap.Auto.ID, status)
}

func (m *Manager) emit(ctx context.Context, tx pgx.Tx, topic string, a model.Assignment, autoNo string) error {
	evt, err := outbox.AssignmentEvent(topic, a, autoNo)
	if err != nil {
		return err
	}
	return m.outbox.Insert(ctx, tx, evt)
}

func newAssignment(autoID string, company model.Company, start, end, today time.Time) model.Assignment {
	start, end = dateutil.Normalize(start), dateutil.Normalize(end)
	return model.Assignment{
		AutoID:      autoID,
		CompanyID:   company.ID,
		CompanyName: company.Name,
		StartDate:   start,
		EndDate:     end,
		Days:        dateutil.InclusiveDays(start, end),
		Status:      statusFor(start, today),
	}
}

func statusFor(start, today time.Time) model.AssignmentStatus {
	if !dateutil.Normalize(start).After(dateutil.Normalize(today)) {
		return model.AssignmentActive
	}
	return model.AssignmentPrebooked
}

func withoutAssignment(assignments []model.Assignment, id string) []model.Assignment {
	var out []model.Assignment
	for _, a := range assignments {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

func replaceAssignment(assignments []model.Assignment, next model.Assignment) []model.Assignment {
	out := make([]model.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.ID == next.ID {
			out = append(out, next)
		} else {
			out = append(out, a)
		}
	}
	return out
}

func errText(err error) string {
	if errors.Is(err, ErrNotFound) {
		return "auto not found"
	}
	return err.Error()
}
