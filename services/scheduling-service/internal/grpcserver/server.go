package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/grpcx"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/engine"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/policy"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type Server struct {
	engine   *engine.Engine
	policies policy.Provider
	logger   *slog.Logger
}

func NewServer(e *engine.Engine, policies policy.Provider, logger *slog.Logger) *Server {
	return &Server{engine: e, policies: policies, logger: logger}
}

// New builds a gRPC server with the availability and health services registered.
func New(srv *Server, logger *slog.Logger) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcx.UnaryServerRequestIDInterceptor(),
			grpcx.UnaryServerLoggingInterceptor(logger),
		),
	)
	RegisterAvailabilityServer(s, srv)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}

func (s *Server) CheckAvailability(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	date, err := schedule.ParseDate(fields["date"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	iv, err := schedule.ParseInterval(fields["start"].GetStringValue(), fields["end"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	av, err := s.engine.CheckAvailability(ctx, fields["provider_id"].GetStringValue(), date, iv)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toStruct(av)
}

func (s *Server) ListFreeSlots(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	providerID := fields["provider_id"].GetStringValue()
	date, err := schedule.ParseDate(fields["date"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var slots engine.DaySlots
	if name := fields["profile"].GetStringValue(); name != "" {
		pol, ok := s.policies.Profile(name)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "unknown profile %q", name)
		}
		slots, err = s.engine.ListFreeSlotsWithPolicy(ctx, providerID, date, pol)
	} else {
		slots, err = s.engine.ListFreeSlots(ctx, providerID, date)
	}
	if err != nil {
		return nil, s.toStatus(err)
	}
	if !fields["all"].GetBoolValue() {
		slots.Grid = nil
	}
	return toStruct(struct {
		engine.DaySlots
		Date string `json:"date"`
	}{slots, schedule.FormatDate(slots.Date)})
}

func (s *Server) ProjectMonth(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	today := s.engine.Today()
	year, month := today.Year(), today.Month()
	if v, ok := fields["year"]; ok {
		year = int(v.GetNumberValue())
	}
	if v, ok := fields["month"]; ok {
		month = time.Month(int(v.GetNumberValue()))
	}

	cal, err := s.engine.ProjectMonth(ctx, fields["provider_id"].GetStringValue(), year, month)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toStruct(cal)
}

func (s *Server) toStatus(err error) error {
	var (
		verr *engine.ValidationError
		cerr *engine.ConflictError
		serr *engine.StateError
	)
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Error())
	case errors.Is(err, engine.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, engine.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &cerr):
		return status.Error(codes.AlreadyExists, cerr.Error())
	case errors.As(err, &serr):
		return status.Error(codes.FailedPrecondition, serr.Error())
	default:
		s.logger.Error("grpc call failed", "err", err)
		return status.Error(codes.Internal, "internal error")
	}
}

// toStruct converts v through its JSON form so wire fields match the HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}
