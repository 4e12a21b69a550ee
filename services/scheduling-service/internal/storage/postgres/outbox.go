package postgres

import (
	"context"
	"fmt"

	otelx "github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/otel"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/outbox"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OutboxRepository struct {
	q querier
}

func (r *OutboxRepository) Append(ctx context.Context, evt outbox.Event) error {
	tc := otelx.CaptureTraceContext(ctx)
	_, err := r.q.Exec(ctx, `
		INSERT INTO outbox_events (event_id, aggregate_type, aggregate_id, event_type, partition_key, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.NewString(), evt.AggregateType, evt.AggregateID, evt.EventType, evt.Key(), string(evt.Payload), tc.Parent, tc.State)
	return err
}

func (r *OutboxRepository) fetchUnpublished(ctx context.Context, limit int) ([]outbox.Record, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, event_id::text, aggregate_type, aggregate_id, event_type, partition_key, payload::text, traceparent, tracestate, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []outbox.Record
	for rows.Next() {
		var (
			rcd     outbox.Record
			payload string
		)
		if err := rows.Scan(&rcd.ID, &rcd.EventID, &rcd.AggregateType, &rcd.AggregateID, &rcd.EventType, &rcd.PartitionKey, &payload, &rcd.Traceparent, &rcd.Tracestate, &rcd.CreatedAt); err != nil {
			return nil, err
		}
		rcd.Payload = []byte(payload)
		records = append(records, rcd)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func (r *OutboxRepository) markPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx, `
		UPDATE outbox_events
		SET published_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}

// Relay locks a batch of unpublished events, hands them to publish and marks
// them published in the same transaction.
func (s *Store) Relay(ctx context.Context, limit int, publish func(context.Context, []outbox.Record) error) (int, error) {
	var n int
	err := s.pool.InTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
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
		ids := make([]int64, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.ID)
		}
		if err := repo.markPublished(ctx, ids); err != nil {
			return fmt.Errorf("mark published: %w", err)
		}
		n = len(records)
		return nil
	})
	return n, err
}
