//go:build !protogen

package main

import (
	"context"
	"log/slog"
)

func priorityThreshold(_ context.Context, _ *slog.Logger, fallback int) int {
	return fallback
}
