package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/config"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/storage"
)

type serviceConfig struct {
	Service  string
	Port     string
	GRPCPort string

	Store      storage.Config
	SlotPolicy string
	PolicyFile string
	Location   *time.Location

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitPerMinute int
	CORSOrigins        []string
	RequestTimeout     time.Duration
	BodyLimitBytes     int64

	KafkaBrokers    string
	KafkaGroupID    string
	DecisionsTopic  string
	OutboxPollEvery time.Duration
}

func loadConfig() (serviceConfig, error) {
	cfg := serviceConfig{
		Service:        config.String("SERVICE_NAME", "scheduling-service"),
		SlotPolicy:     config.String("SLOT_POLICY", "standard"),
		PolicyFile:     config.String("POLICY_FILE", ""),
		RedisAddr:      config.String("REDIS_ADDR", ""),
		RedisPassword:  config.String("REDIS_PASSWORD", ""),
		CORSOrigins:    config.List("CORS_ALLOWED_ORIGINS"),
		KafkaBrokers:   config.String("KAFKA_BROKERS", ""),
		KafkaGroupID:   config.String("KAFKA_GROUP_ID", "scheduling-service"),
		DecisionsTopic: config.String("DECISIONS_TOPIC", "scheduling.booking.decision.v1"),
		Store: storage.Config{
			Driver:      strings.ToLower(config.String("STORE_DRIVER", storage.DriverPostgres)),
			SQLitePath:  config.String("SQLITE_PATH", "scheduling.db"),
			AutoMigrate: config.Bool("DB_AUTO_MIGRATE", true),
		},
	}

	var err error
	if cfg.Port, err = config.Port("PORT", "8080"); err != nil {
		return cfg, err
	}
	// GRPC_PORT=off disables the gRPC listener.
	if raw := strings.ToLower(config.String("GRPC_PORT", "9090")); raw != "off" {
		if cfg.GRPCPort, err = config.Port("GRPC_PORT", "9090"); err != nil {
			return cfg, err
		}
	}
	if cfg.RedisDB, err = config.Int("REDIS_DB", 0); err != nil {
		return cfg, err
	}
	if cfg.RateLimitPerMinute, err = config.Int("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return cfg, err
	}
	if cfg.RequestTimeout, err = config.Duration("HTTP_REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return cfg, err
	}
	if cfg.OutboxPollEvery, err = config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second); err != nil {
		return cfg, err
	}
	bodyLimit, err := config.Int("HTTP_BODY_LIMIT_BYTES", 1<<20)
	if err != nil {
		return cfg, err
	}
	cfg.BodyLimitBytes = int64(bodyLimit)
	maxConns, err := config.Int("DB_MAX_CONNS", 10)
	if err != nil {
		return cfg, err
	}
	cfg.Store.MaxConns = int32(maxConns)

	if cfg.Location, err = time.LoadLocation(config.String("TIMEZONE", "UTC")); err != nil {
		return cfg, fmt.Errorf("TIMEZONE: %w", err)
	}
	if cfg.Store.Driver == storage.DriverPostgres {
		if cfg.Store.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
			return cfg, fmt.Errorf("%w when STORE_DRIVER=%s", err, storage.DriverPostgres)
		}
	}
	return cfg, nil
}
