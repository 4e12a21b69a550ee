package grpcserver

import (
	"context"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/grpcx"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/engine"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/policy"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

var fixedNow = time.Date(2031, 1, 2, 9, 0, 0, 0, time.UTC)

func startServer(t *testing.T) (*Client, *grpc.ClientConn, *engine.Engine) {
	t.Helper()
	return startServerWith(t, engine.Options{Now: func() time.Time { return fixedNow }})
}

func startServerWith(t *testing.T, opts engine.Options) (*Client, *grpc.ClientConn, *engine.Engine) {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "scheduling.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	policies, err := policy.NewStaticProvider(policy.ProfileStandard)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := engine.New(store, policies, logger, opts)

	lis := bufconn.Listen(1 << 20)
	srv, _ := New(NewServer(e, policies, logger), logger)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpcx.Dial(context.Background(), "passthrough:///bufnet", grpcx.DialOptions{WaitReady: true, Timeout: 5 * time.Second},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn), conn, e
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestCheckAvailability(t *testing.T) {
	ctx := context.Background()
	client, _, e := startServer(t)

	_, err := e.TryCreateBooking(ctx, engine.BookingRequest{
		ProviderID: "prov-1",
		ClientID:   "c",
		Date:       time.Date(2031, 3, 10, 0, 0, 0, 0, time.UTC),
		Interval:   schedule.Interval{Start: schedule.MustTimeOfDay("10:00"), End: schedule.MustTimeOfDay("11:00")},
	})
	require.NoError(t, err)

	var header metadata.MD
	out, err := client.CheckAvailability(ctx, mustStruct(t, map[string]any{
		"provider_id": "prov-1", "date": "2031-03-10", "start": "10:30", "end": "11:30",
	}), grpc.Header(&header))
	require.NoError(t, err)
	assert.False(t, out.GetFields()["available"].GetBoolValue())
	assert.Equal(t, "booking", out.GetFields()["cause"].GetStringValue())
	assert.NotEmpty(t, header.Get(grpcx.RequestIDMetadataKey))

	out, err = client.CheckAvailability(ctx, mustStruct(t, map[string]any{
		"provider_id": "prov-1", "date": "2031-03-10", "start": "11:00", "end": "11:30",
	}))
	require.NoError(t, err)
	assert.True(t, out.GetFields()["available"].GetBoolValue())
}

func TestInvalidArguments(t *testing.T) {
	ctx := context.Background()
	client, _, _ := startServer(t)

	_, err := client.CheckAvailability(ctx, mustStruct(t, map[string]any{
		"provider_id": "prov-1", "date": "2031-03-10", "start": "11:00", "end": "10:00",
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.ListFreeSlots(ctx, mustStruct(t, map[string]any{"provider_id": "prov-1", "date": "tomorrow"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.ProjectMonth(ctx, mustStruct(t, map[string]any{"provider_id": "prov-1", "year": 2031, "month": 13}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.ListFreeSlots(ctx, mustStruct(t, map[string]any{"provider_id": "", "date": "2031-03-10"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestListFreeSlots(t *testing.T) {
	client, _, _ := startServer(t)

	out, err := client.ListFreeSlots(context.Background(), mustStruct(t, map[string]any{
		"provider_id": "prov-1", "date": "2031-03-10", "profile": "hourly", "all": true,
	}))
	require.NoError(t, err)
	fields := out.GetFields()
	assert.Equal(t, "2031-03-10", fields["date"].GetStringValue())
	assert.Len(t, fields["slots"].GetListValue().GetValues(), 9)
	assert.Len(t, fields["grid"].GetListValue().GetValues(), 9)
	first := fields["slots"].GetListValue().GetValues()[0].GetStructValue().GetFields()
	assert.Equal(t, "09:00", first["start"].GetStringValue())
}

func TestProjectMonthDefaultsToEngineMonth(t *testing.T) {
	lima := time.FixedZone("PET", -5*60*60)
	client, _, _ := startServerWith(t, engine.Options{
		Location: lima,
		Now:      func() time.Time { return time.Date(2031, 2, 1, 2, 0, 0, 0, time.UTC) },
	})

	out, err := client.ProjectMonth(context.Background(), mustStruct(t, map[string]any{"provider_id": "prov-1"}))
	require.NoError(t, err)
	assert.EqualValues(t, 1, out.GetFields()["month"].GetNumberValue())
	assert.EqualValues(t, 31, out.GetFields()["total_days"].GetNumberValue())
}

func TestProjectMonth(t *testing.T) {
	ctx := context.Background()
	client, _, e := startServer(t)

	_, err := e.BlackoutDay(ctx, "prov-1", time.Date(2032, 2, 29, 0, 0, 0, 0, time.UTC), "leap")
	require.NoError(t, err)

	out, err := client.ProjectMonth(ctx, mustStruct(t, map[string]any{"provider_id": "prov-1", "year": 2032, "month": 2}))
	require.NoError(t, err)
	fields := out.GetFields()
	assert.EqualValues(t, 29, fields["total_days"].GetNumberValue())
	assert.EqualValues(t, 1, fields["blocked_days"].GetNumberValue())
	day := fields["days"].GetStructValue().GetFields()["29"].GetStructValue().GetFields()
	assert.False(t, day["available"].GetBoolValue())
	assert.NotEmpty(t, day["blackout_id"].GetStringValue())
}

func TestHealth(t *testing.T) {
	_, conn, _ := startServer(t)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
