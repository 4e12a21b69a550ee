package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	otelx "github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/otel"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/outbox"
	"github.com/google/uuid"
)

type OutboxRepository struct {
	q querier
}

func (r *OutboxRepository) Append(ctx context.Context, evt outbox.Event) error {
	tc := otelx.CaptureTraceContext(ctx)
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO outbox_events (event_id, aggregate_type, aggregate_id, event_type, partition_key, payload, traceparent, tracestate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), evt.AggregateType, evt.AggregateID, evt.EventType, evt.Key(), string(evt.Payload), tc.Parent, tc.State, formatTime(time.Now()))
	return err
}

func (r *OutboxRepository) fetchUnpublished(ctx context.Context, limit int) ([]outbox.Record, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, partition_key, payload, traceparent, tracestate, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []outbox.Record
	for rows.Next() {
		var (
			rcd              outbox.Record
			payload, created string
		)
		if err := rows.Scan(&rcd.ID, &rcd.EventID, &rcd.AggregateType, &rcd.AggregateID, &rcd.EventType, &rcd.PartitionKey, &payload, &rcd.Traceparent, &rcd.Tracestate, &created); err != nil {
			return nil, err
		}
		rcd.Payload = []byte(payload)
		if rcd.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		records = append(records, rcd)
	}
	return records, rows.Err()
}

// Relay publishes a batch while holding the write lock and marks it published.
func (s *Store) Relay(ctx context.Context, limit int, publish func(context.Context, []outbox.Record) error) (int, error) {
	var n int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		repo := &OutboxRepository{q: tx}
		records, err := repo.fetchUnpublished(ctx, limit)
		if err != nil {
			return fmt.Errorf("fetch outbox: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := publish(ctx, records); err != nil {
			return err
		}
		publishedAt := formatTime(time.Now())
		for _, r := range records {
			if _, err := tx.ExecContext(ctx, `UPDATE outbox_events SET published_at = ? WHERE id = ?`, publishedAt, r.ID); err != nil {
				return fmt.Errorf("mark published: %w", err)
			}
		}
		n = len(records)
		return nil
	})
	return n, err
}
