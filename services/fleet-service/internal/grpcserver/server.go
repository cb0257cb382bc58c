//go:build protogen

package grpcserver

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/timestamppb"

	fleetv1 "github.com/adfleet/adfleet/protos/gen/fleet/v1"
	"github.com/adfleet/adfleet/services/fleet-service/internal/allocation"
	"github.com/adfleet/adfleet/services/fleet-service/internal/dateutil"
	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
	"github.com/adfleet/adfleet/services/fleet-service/internal/storage"
)

type server struct {
	fleetv1.UnimplementedFleetServiceServer
	autos       *storage.AutoRepository
	assignments *storage.AssignmentRepository
	logger      *slog.Logger
}

func Register(grpcServer *grpc.Server, autos *storage.AutoRepository, assignments *storage.AssignmentRepository, logger *slog.Logger) {
	fleetv1.RegisterFleetServiceServer(grpcServer, &server{autos: autos, assignments: assignments, logger: logger})
}

func (s *server) GetAvailability(ctx context.Context, req *fleetv1.AvailabilityRequest) (*fleetv1.AvailabilityResponse, error) {
	start, err := dateutil.ParseDate(req.GetStartDate())
	if err != nil {
		return nil, err
	}
	end, err := dateutil.ParseDate(req.GetEndDate())
	if err != nil {
		return nil, err
	}

	autos, err := s.autos.List(ctx, storage.AutoFilter{AreaID: req.GetAreaId()})
	if err != nil {
		return nil, err
	}
	blocking, err := s.assignments.ListBlocking(ctx)
	if err != nil {
		return nil, err
	}
	byAuto := map[string][]model.Assignment{}
	for _, a := range blocking {
		byAuto[a.AutoID] = append(byAuto[a.AutoID], a)
	}
	snaps := make([]allocation.AutoSnapshot, 0, len(autos))
	for _, auto := range autos {
		snaps = append(snaps, allocation.AutoSnapshot{Auto: auto, Assignments: byAuto[auto.ID]})
	}

	return &fleetv1.AvailabilityResponse{
		Total:      int32(len(autos)),
		Available:  int32(allocation.AvailableCount(snaps, start, end)),
		ComputedAt: timestamppb.New(time.Now().UTC()),
	}, nil
}

func (s *server) GetPriorityThreshold(ctx context.Context, _ *fleetv1.PriorityThresholdRequest) (*fleetv1.PriorityThresholdResponse, error) {
	return &fleetv1.PriorityThresholdResponse{
		Threshold: int32(dateutil.DefaultPriorityThreshold),
	}, nil
}
