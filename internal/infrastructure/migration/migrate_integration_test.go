//go:build integration

package migration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/banper/backend/migrations"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("banper_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(ctx))
	return db
}

func TestMigrator_RoundTrip(t *testing.T) {
	db := startPostgres(t)

	m, err := NewFromFS(db, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)

	require.NoError(t, m.Up())
	require.NoError(t, m.Up())

	version, dirty, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
	assert.False(t, dirty)

	for _, table := range []string{"funding_requests", "allocations", "transactions", "transaction_sequences"} {
		var exists bool
		err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}

	require.NoError(t, m.Steps(-1))
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestMigrator_ConservationConstraint(t *testing.T) {
	db := startPostgres(t)

	m, err := NewFromFS(db, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Up())

	insert := `INSERT INTO allocations (id, tenant_id, program_id, source, allocated_amount, spent_amount, remaining_amount, fiscal_year)
		VALUES ($1, $2, $3, 'CENTRAL_BUDGET', $4, $5, $6, 2026)`

	_, err = db.Exec(insert, uuid.New(), uuid.New(), uuid.New(), 1000, 400, 600)
	require.NoError(t, err)

	_, err = db.Exec(insert, uuid.New(), uuid.New(), uuid.New(), 1000, 400, 500)
	assert.ErrorContains(t, err, "chk_allocations_conservation")

	_, err = db.Exec(insert, uuid.New(), uuid.New(), uuid.New(), 1000, 1200, -200)
	assert.ErrorContains(t, err, "chk_allocations_no_overspend")
}
