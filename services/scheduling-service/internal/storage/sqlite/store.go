// Package sqlite is the single-file backend. Every transaction starts with
// BEGIN IMMEDIATE, so units of work are serialized by the database write lock.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/engine"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

const timeLayout = time.RFC3339Nano

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	params := url.Values{}
	params.Set("_txlock", "immediate")
	params.Set("_busy_timeout", "10000")
	params.Set("_journal_mode", "WAL")
	params.Set("_foreign_keys", "on")

	conn, err := sql.Open("sqlite3", "file:"+path+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(8)

	s := &Store{db: conn}
	if err := s.Migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Bookings() engine.BookingStore {
	return &BookingRepository{q: s.db}
}

func (s *Store) Blackouts() engine.BlackoutStore {
	return &BlackoutRepository{q: s.db}
}

// InProviderDays holds the database write lock for the whole unit, which
// covers every provider and date at once.
func (s *Store) InProviderDays(ctx context.Context, _ string, _, _ time.Time, fn func(context.Context, engine.Stores) error) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return fn(ctx, engine.Stores{
			Bookings:  &BookingRepository{q: tx},
			Blackouts: &BlackoutRepository{q: tx},
			Outbox:    &OutboxRepository{q: tx},
		})
	})
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return engine.ErrNotFound
	}
	if IsConflict(err) {
		return fmt.Errorf("%w: %v", engine.ErrOverlap, err)
	}
	return err
}

// IsConflict reports the overlap trigger or a unique constraint firing.
// CHECK, NOT NULL and primary key failures are schema bugs, not conflicts.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) && sqErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return true
	}
	return strings.Contains(err.Error(), "bookings_no_overlap")
}

func formatDay(t time.Time) string {
	return schedule.FormatDate(t)
}

func parseDay(s string) (time.Time, error) {
	return schedule.ParseDate(s)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
