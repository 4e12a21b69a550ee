package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/config"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/httpx"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/kafkax"
	otelx "github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/otel"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/runtime"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/consumer"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/engine"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/grpcserver"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/handlers"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/inbox"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/metrics"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/outbox"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/policy"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("load .env failed", "err", err)
		os.Exit(1)
	}
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := runtime.NewLogger(cfg.Service)

	ctx, stop := runtime.SignalContext(context.Background(), logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg serviceConfig, logger *slog.Logger) error {
	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	store, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	var policies policy.Provider
	if cfg.PolicyFile != "" {
		policies, err = policy.LoadFile(cfg.PolicyFile)
	} else {
		policies, err = policy.NewStaticProvider(cfg.SlotPolicy)
	}
	if err != nil {
		return err
	}

	eng := engine.New(store, policies, logger, engine.Options{Location: cfg.Location})
	metrics.Register()

	checks := []runtime.ReadyCheck{{Name: "db", Check: store.Ping}}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	if cfg.KafkaBrokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})

		publisher := outbox.NewPublisher(store, logger, outbox.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			PollEvery: cfg.OutboxPollEvery,
			BatchSize: 50,
		})
		go publisher.Run(ctx)

		if rdb != nil && cfg.DecisionsTopic != "" {
			decisions := consumer.New(logger, inbox.NewRedisInbox(rdb, 0), eng, consumer.Config{
				Brokers: cfg.KafkaBrokers,
				GroupID: cfg.KafkaGroupID,
				Topic:   cfg.DecisionsTopic,
			})
			go decisions.Run(ctx)
		} else {
			logger.Warn("decision consumer disabled (needs REDIS_ADDR and DECISIONS_TOPIC)")
		}
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/metrics", metrics.Handler())
	handlers.NewAPI(eng, policies, logger).Register(mux)

	var limit httpx.Middleware
	if rdb != nil {
		limit = httpx.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, "scheduling:rl").Middleware(logger, true)
	} else {
		limit = httpx.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute).Middleware()
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(cfg.CORSOrigins)),
		limit,
		httpx.WithBodyLimit(cfg.BodyLimitBytes),
		httpx.WithTimeout(cfg.RequestTimeout),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	grpcSrv, health := grpcserver.New(grpcserver.NewServer(eng, policies, logger), logger)
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			return err
		}
		go func() {
			logger.Info("grpc server starting", "addr", lis.Addr().String())
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		logger.Error("server error", "err", serveErr)
	}

	health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	grpcSrv.GracefulStop()
	logger.Info("servers stopped")
	return serveErr
}
