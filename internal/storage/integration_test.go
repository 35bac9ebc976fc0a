package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestStore starts a PostgreSQL container and applies the embedded
// migrations. Set SUI_FRIDAY_INTEGRATION=1 to run.
func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	if os.Getenv("SUI_FRIDAY_INTEGRATION") != "1" {
		t.Skip("set SUI_FRIDAY_INTEGRATION=1 to run PostgreSQL integration tests")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("suifriday"),
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

	require.NoError(t, RunMigrations(ctx, dsn))

	store, err := NewStore(ctx, dsn)
	require.NoError(t, err, "failed to create store")
	t.Cleanup(store.Close)

	return store, dsn
}

func TestStoreIntegration(t *testing.T) {
	store, dsn := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	rec := NewRecorder(store)
	require.NoError(t, rec.Prime(ctx))

	base := time.Date(2025, 6, 6, 12, 0, 0, 0, time.UTC)
	require.NoError(t, rec.Record(ctx, snapshotOf(1_000_000_000, base)))
	require.NoError(t, rec.Record(ctx, snapshotOf(1_000_000_000, base.Add(5*time.Second))))
	require.NoError(t, rec.Record(ctx, snapshotOf(5_500_000_000, base.Add(10*time.Second))))

	history, err := store.History(ctx, testAddress, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "5500000000", history[0].TotalMist.String())
	assert.Equal(t, "5.5", history[0].TotalSUI.String())
	assert.Equal(t, "Douglas", history[0].Name)
	assert.True(t, history[0].FetchedAt.Equal(base.Add(10*time.Second)))
	assert.Equal(t, "1000000000", history[1].TotalMist.String())

	limited, err := store.History(ctx, testAddress, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	totals, err := store.LatestTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{testAddress: "5500000000"}, totals)

	// a restarted recorder does not duplicate the latest row
	restarted := NewRecorder(store)
	require.NoError(t, restarted.Prime(ctx))
	require.NoError(t, restarted.Record(ctx, snapshotOf(5_500_000_000, base.Add(time.Minute))))
	history, err = store.History(ctx, testAddress, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	require.NoError(t, MigrateStatus(ctx, dsn))
	require.NoError(t, MigrateDown(ctx, dsn))
	_, err = store.History(ctx, testAddress, 0)
	assert.Error(t, err, "table is gone after rollback")
}
