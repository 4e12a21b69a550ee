package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/db"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/engine"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/storage/storagetest"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(pgx.ErrNoRows), engine.ErrNotFound)
	assert.ErrorIs(t, mapError(fmt.Errorf("scan: %w", pgx.ErrNoRows)), engine.ErrNotFound)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "22P02"}), engine.ErrNotFound)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23P01", ConstraintName: "bookings_no_overlap"}), engine.ErrOverlap)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23505"}), engine.ErrOverlap)

	other := errors.New("connection reset")
	assert.Equal(t, other, mapError(other))
	assert.False(t, IsConflict(&pgconn.PgError{Code: "40001"}))
}

func TestLockKey(t *testing.T) {
	day := time.Date(2031, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "schedule:p-1:2031-03-10", lockKey("p-1", day))
	assert.NotEqual(t, lockKey("p-1", day), lockKey("p-1", day.AddDate(0, 0, 1)))
}

func TestNullableDate(t *testing.T) {
	assert.Nil(t, nullableDate(time.Time{}))
	got := nullableDate(time.Date(2031, 3, 10, 15, 4, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2031, 3, 10, 0, 0, 0, 0, time.UTC), got)
}

// TestStoreContract needs a disposable database with btree_gist available.
func TestStoreContract(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.Open(ctx, url, db.Options{MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := New(pool)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "migrations must be idempotent")

	storagetest.Run(t, func(*testing.T) storagetest.Backend { return store })
}
