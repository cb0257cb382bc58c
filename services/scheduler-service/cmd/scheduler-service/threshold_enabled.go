//go:build protogen

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/adfleet/adfleet/libs/grpcx"
	"github.com/adfleet/adfleet/libs/runtime"
	fleetv1 "github.com/adfleet/adfleet/protos/gen/fleet/v1"
)

// priorityThreshold asks fleet-service for its configured threshold so both
// services agree on what counts as expiring. Falls back to the local value
// when fleet is unreachable at startup.
func priorityThreshold(ctx context.Context, logger *slog.Logger, fallback int) int {
	addr := runtime.Getenv("FLEET_GRPC_ADDR", "fleet-service:9091")
	conn, err := grpcx.Dial(ctx, addr, grpcx.DialOptions{})
	if err != nil {
		logger.Error("fleet grpc dial failed, using local threshold", "addr", addr, "err", err)
		return fallback
	}
	defer func() { _ = conn.Close() }()

	reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	resp, err := fleetv1.NewFleetServiceClient(conn).GetPriorityThreshold(reqCtx, &fleetv1.PriorityThresholdRequest{})
	if err != nil {
		logger.Error("fleet threshold lookup failed, using local threshold", "err", err)
		return fallback
	}
	return int(resp.GetThreshold())
}
