package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/adfleet/adfleet/libs/config"
	"github.com/adfleet/adfleet/libs/db"
	"github.com/adfleet/adfleet/libs/httpx"
	otelx "github.com/adfleet/adfleet/libs/otel"
	"github.com/adfleet/adfleet/libs/runtime"
	"github.com/adfleet/adfleet/services/fleet-service/internal/handlers"
	"github.com/adfleet/adfleet/services/fleet-service/internal/lifecycle"
	"github.com/adfleet/adfleet/services/fleet-service/internal/outbox"
	"github.com/adfleet/adfleet/services/fleet-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "fleet-service")
	port, err := config.Port("PORT", "8081")
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

	autos := storage.NewAutoRepository(pool)
	assignments := storage.NewAssignmentRepository(pool)
	companies := storage.NewCompanyRepository(pool)
	tickets := storage.NewTicketRepository(pool)
	areas := storage.NewAreaRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	manager := lifecycle.NewManager(pool, autos, assignments, companies, outboxRepo, logger)

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: time.Duration(config.Int("OUTBOX_POLL_MS", 2000)) * time.Millisecond,
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go publisher.Run(ctx)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	handlers.NewAssignmentHandler(manager, assignments, logger).Register(mux)
	handlers.NewAutoHandler(autos, assignments, areas, logger).Register(mux)
	handlers.NewTicketHandler(tickets, companies, autos, assignments, areas, manager, logger).Register(mux)
	handlers.NewDashboardHandler(autos, assignments, logger).Register(mux)
	handlers.NewPortalHandler(companies, assignments, autos, logger).Register(mux)
	handlers.NewCompanyHandler(companies, areas, logger).Register(mux)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	handler = otelhttp.NewHandler(handler, "fleet")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	if err := startGrpcServer(ctx, logger, autos, assignments); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
