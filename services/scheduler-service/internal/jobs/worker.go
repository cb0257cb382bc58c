package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/adfleet/adfleet/libs/db"
	"github.com/adfleet/adfleet/services/scheduler-service/internal/outbox"
)

const TopicAssignmentExpiring = "fleet.assignment.expiring.v1"

// Worker periodically scans the watch table for assignments ending within the
// priority threshold and publishes an expiring event for each, at most once
// per assignment per day.
type Worker struct {
	pool      *db.Pool
	repo      *Repository
	outbox    *outbox.Repository
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	threshold int
	now       func() time.Time
}

type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
	Threshold int
}

func NewWorker(pool *db.Pool, repo *Repository, outboxRepo *outbox.Repository, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 1 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Threshold < 0 {
		cfg.Threshold = 2
	}
	return &Worker{
		pool:      pool,
		repo:      repo,
		outbox:    outboxRepo,
		logger:    logger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		threshold: cfg.Threshold,
		now:       time.Now,
	}
}

// SetNow overrides the wall clock, for tests.
func (w *Worker) SetNow(now func() time.Time) { w.now = now }

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				w.logger.Error("expiring scan failed", "err", err)
			}
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) error {
	today := w.today()

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	entries, err := w.repo.FetchExpiring(ctx, tx, today, w.threshold, w.batchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return tx.Commit(ctx)
	}

	var alerted []string
	for _, e := range entries {
		payload, err := json.Marshal(expiringPayload(e, today))
		if err != nil {
			w.logger.Error("expiring payload marshal failed", "assignment_id", e.AssignmentID, "err", err)
			continue
		}
		if err := w.outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: "assignment",
			AggregateID:   e.AssignmentID,
			EventType:     TopicAssignmentExpiring,
			Payload:       payload,
		}); err != nil {
			return err
		}
		alerted = append(alerted, e.AssignmentID)
	}

	if err := w.repo.MarkAlerted(ctx, tx, alerted, today); err != nil {
		return err
	}
	w.logger.Info("expiring assignments alerted", "count", len(alerted), "threshold", w.threshold)
	return tx.Commit(ctx)
}

func (w *Worker) today() time.Time {
	t := w.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func expiringPayload(e WatchEntry, today time.Time) map[string]any {
	remaining := int(e.EndDate.Sub(today).Hours() / 24)
	return map[string]any{
		"assignment_id":  e.AssignmentID,
		"auto_id":        e.AutoID,
		"auto_no":        e.AutoNo,
		"company_id":     e.CompanyID,
		"company_name":   e.CompanyName,
		"start_date":     e.StartDate.Format("2006-01-02"),
		"end_date":       e.EndDate.Format("2006-01-02"),
		"days_remaining": remaining,
	}
}
