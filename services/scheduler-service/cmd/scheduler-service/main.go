package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/adfleet/adfleet/libs/config"
	"github.com/adfleet/adfleet/libs/db"
	"github.com/adfleet/adfleet/libs/httpx"
	"github.com/adfleet/adfleet/libs/kafkax"
	otelx "github.com/adfleet/adfleet/libs/otel"
	"github.com/adfleet/adfleet/libs/runtime"
	"github.com/adfleet/adfleet/services/scheduler-service/internal/consumer"
	"github.com/adfleet/adfleet/services/scheduler-service/internal/inbox"
	"github.com/adfleet/adfleet/services/scheduler-service/internal/jobs"
	"github.com/adfleet/adfleet/services/scheduler-service/internal/outbox"
)

const (
	topicAssignmentCreated = "fleet.assignment.created.v1"
	topicAssignmentUpdated = "fleet.assignment.updated.v1"
	topicAssignmentDeleted = "fleet.assignment.deleted.v1"
)

type assignmentEvent struct {
	AssignmentID string `json:"assignment_id"`
	AutoID       string `json:"auto_id"`
	AutoNo       string `json:"auto_no"`
	CompanyID    string `json:"company_id"`
	CompanyName  string `json:"company_name"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Days         int    `json:"days"`
	Status       string `json:"status"`
}

func main() {
	service := config.String("SERVICE_NAME", "scheduler-service")
	port, err := config.Port("PORT", "8087")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	inboxRepo := inbox.NewRepository(pool)
	watchRepo := jobs.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	brokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	worker := jobs.NewWorker(pool, watchRepo, outboxRepo, logger, jobs.WorkerConfig{
		Interval:  time.Duration(config.Int("EXPIRING_SCAN_SECONDS", 60)) * time.Second,
		BatchSize: config.Int("EXPIRING_BATCH_SIZE", 100),
		Threshold: priorityThreshold(ctx, logger, config.Int("PRIORITY_THRESHOLD_DAYS", 2)),
	})
	go worker.Run(ctx)

	consumerCfg := consumer.Config{
		Brokers: brokers,
		GroupID: config.String("KAFKA_GROUP_ID", "scheduler-service"),
		Topics:  []string{topicAssignmentCreated, topicAssignmentUpdated, topicAssignmentDeleted},
	}

	eventConsumer := consumer.New(logger, inboxRepo, consumerCfg, func(ctx context.Context, msg kafka.Message) error {
		var evt assignmentEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid assignment event", "topic", msg.Topic, "err", err)
			return nil
		}
		if evt.AssignmentID == "" {
			logger.Error("assignment event missing id", "topic", msg.Topic)
			return nil
		}

		if msg.Topic == topicAssignmentDeleted {
			return watchRepo.Delete(ctx, evt.AssignmentID)
		}

		start, err := time.Parse("2006-01-02", evt.StartDate)
		if err != nil {
			logger.Error("invalid start_date in event", "err", err)
			return nil
		}
		end, err := time.Parse("2006-01-02", evt.EndDate)
		if err != nil {
			logger.Error("invalid end_date in event", "err", err)
			return nil
		}

		return watchRepo.Upsert(ctx, jobs.WatchEntry{
			AssignmentID: evt.AssignmentID,
			AutoID:       evt.AutoID,
			AutoNo:       evt.AutoNo,
			CompanyID:    evt.CompanyID,
			CompanyName:  evt.CompanyName,
			StartDate:    start,
			EndDate:      end,
			Status:       evt.Status,
		})
	})
	go eventConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           otelhttp.NewHandler(handler, "scheduler"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("scheduler stopped")
}
