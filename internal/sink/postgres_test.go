package sink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgresSink starts a PostgreSQL container and returns a sink with
// the schema applied.
func setupPostgresSink(t *testing.T) *PostgresSink {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	s, err := NewPostgresSink(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.EnsureSchema(ctx))
	return s
}

func TestPostgresSink_Upsert(t *testing.T) {
	s := setupPostgresSink(t)
	ctx := context.Background()

	_, err := s.Read(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Write(ctx, "abc", sampleRecord(10)))
	require.NoError(t, s.Write(ctx, "abc", sampleRecord(55)))

	got, err := s.Read(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 55.0, got.Volatility)
	require.NotNil(t, got.V24hChangePercent)
	assert.InDelta(t, 21.0, *got.V24hChangePercent, 1e-9)

	var rows int
	require.NoError(t, s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM token_features`).Scan(&rows))
	assert.Equal(t, 1, rows, "snapshots are replaced, not appended")
}
