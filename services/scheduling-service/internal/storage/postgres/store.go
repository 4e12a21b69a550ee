package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/db"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/engine"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed schema.sql
var schema string

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *db.Pool
}

func New(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return db.ReadyCheck(s.pool)(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Bookings() engine.BookingStore {
	return &BookingRepository{q: s.pool}
}

func (s *Store) Blackouts() engine.BlackoutStore {
	return &BlackoutRepository{q: s.pool}
}

// InProviderDays takes a transaction-scoped advisory lock per (provider, day),
// in ascending day order so overlapping ranges cannot deadlock. The
// exclusion constraint on bookings backs this up for inserts.
func (s *Store) InProviderDays(ctx context.Context, providerID string, from, to time.Time, fn func(context.Context, engine.Stores) error) error {
	return s.pool.InTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		for _, day := range schedule.DaysBetween(from, to) {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey(providerID, day)); err != nil {
				return fmt.Errorf("lock provider day: %w", err)
			}
		}
		return fn(ctx, engine.Stores{
			Bookings:  &BookingRepository{q: tx},
			Blackouts: &BlackoutRepository{q: tx},
			Outbox:    &OutboxRepository{q: tx},
		})
	})
}

func lockKey(providerID string, day time.Time) string {
	return "schedule:" + providerID + ":" + schedule.FormatDate(day)
}

// mapError translates driver errors into the engine's sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
		return engine.ErrNotFound
	}
	if IsConflict(err) {
		return fmt.Errorf("%w: %v", engine.ErrOverlap, err)
	}
	return err
}

// IsConflict reports an exclusion (23P01) or unique (23505) violation.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "23P01" || pgErr.Code == "23505")
}

// isInvalidText reports a malformed literal such as a non-uuid id (22P02).
func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

func nullableDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return schedule.DateOf(t)
}
