package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite(t *testing.T) {
	b, err := Open(context.Background(), Config{Driver: "SQLite", SQLitePath: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	defer b.Close()
	assert.NoError(t, b.Ping(context.Background()))
}

func TestOpenRejectsBadConfig(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Config{Driver: "mongo"})
	assert.ErrorContains(t, err, "unknown store driver")

	_, err = Open(ctx, Config{Driver: DriverPostgres})
	assert.ErrorContains(t, err, "DATABASE_URL")

	_, err = Open(ctx, Config{Driver: DriverSQLite})
	assert.ErrorContains(t, err, "SQLITE_PATH")
}
