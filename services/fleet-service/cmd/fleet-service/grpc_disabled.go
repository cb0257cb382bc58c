//go:build !protogen

package main

import (
	"context"
	"log/slog"

	"github.com/adfleet/adfleet/services/fleet-service/internal/storage"
)

func startGrpcServer(_ context.Context, _ *slog.Logger, _ *storage.AutoRepository, _ *storage.AssignmentRepository) error {
	return nil
}
