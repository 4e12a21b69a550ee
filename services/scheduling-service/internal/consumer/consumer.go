// Package consumer applies booking decisions published by other services.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/kafkax"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/engine"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/metrics"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/model"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Decision is the message body on the decisions topic.
type Decision struct {
	EventID   string `json:"event_id"`
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

// StatusChanger applies a status transition to a booking.
type StatusChanger interface {
	TransitionStatus(ctx context.Context, bookingID string, to model.BookingStatus) (model.Booking, error)
}

// Inbox deduplicates redelivered events.
type Inbox interface {
	Record(ctx context.Context, eventID string, eventType string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader      reader
	logger      *slog.Logger
	inbox       Inbox
	bookings    StatusChanger
	maxAttempts int
	backoff     time.Duration
}

type Config struct {
	Brokers     string
	GroupID     string
	Topic       string
	MaxAttempts int
	Backoff     time.Duration
}

func New(logger *slog.Logger, in Inbox, bookings StatusChanger, cfg Config) *Consumer {
	return newConsumer(kafkax.NewReader(kafkax.SplitBrokers(cfg.Brokers), cfg.GroupID, cfg.Topic), logger, in, bookings, cfg)
}

func newConsumer(r reader, logger *slog.Logger, in Inbox, bookings StatusChanger, cfg Config) *Consumer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &Consumer{
		reader:      r,
		logger:      logger,
		inbox:       in,
		bookings:    bookings,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			if !sleep(ctx, c.backoff) {
				return
			}
			continue
		}

		for !c.process(ctx, msg) {
			if !sleep(ctx, c.backoff) {
				return
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit failed", "err", err, "offset", msg.Offset)
		}
	}
}

// process handles one message and reports whether its offset may be
// committed. Malformed messages, duplicates and domain rejections are settled.
// Inbox failures and transitions still failing after maxAttempts are not: the
// event is forgotten in the inbox and Run hands the message back in.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	var d Decision
	if err := json.Unmarshal(msg.Value, &d); err != nil {
		c.logger.Error("malformed decision", "err", err, "event_id", meta.EventID)
		metrics.IncDecisionConsumed("malformed")
		span.RecordError(err)
		return true
	}
	if d.EventID != "" {
		meta.EventID = d.EventID
	}

	ok, err := c.inbox.Record(ctxSpan, meta.EventID, meta.EventType)
	if err != nil {
		c.logger.Error("inbox record failed", "err", err, "event_id", meta.EventID)
		metrics.IncDecisionConsumed("failed")
		span.RecordError(err)
		return false
	}
	if !ok {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		metrics.IncDecisionConsumed("duplicate")
		return true
	}

	for attempt := 1; ; attempt++ {
		err = c.apply(ctxSpan, d)
		if err == nil {
			metrics.IncDecisionConsumed("applied")
			return true
		}
		if engine.IsDomainError(err) {
			c.logger.Warn("decision rejected", "err", err, "event_id", meta.EventID, "booking_id", d.BookingID)
			metrics.IncDecisionConsumed("rejected")
			return true
		}
		if attempt >= c.maxAttempts || !sleep(ctx, c.backoff*time.Duration(attempt)) {
			break
		}
	}

	c.logger.Error("handler error", "err", err, "event_id", meta.EventID, "booking_id", d.BookingID)
	metrics.IncDecisionConsumed("failed")
	span.RecordError(err)
	if ferr := c.inbox.Forget(context.WithoutCancel(ctx), meta.EventID); ferr != nil {
		c.logger.Error("inbox forget failed", "err", ferr, "event_id", meta.EventID)
	}
	return false
}

func (c *Consumer) apply(ctx context.Context, d Decision) error {
	to, ok := model.ParseBookingStatus(d.Status)
	if !ok {
		return &engine.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown status %q", d.Status)}
	}
	b, err := c.bookings.TransitionStatus(ctx, d.BookingID, to)
	if err != nil {
		return fmt.Errorf("transition booking %s: %w", d.BookingID, err)
	}
	c.logger.Info("decision applied", "booking_id", b.ID, "status", string(b.Status))
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
