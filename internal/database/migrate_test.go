//go:build integration

package database_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/safishield/internal/database"
)

const testDBName = "safishield_test"

func startPostgres(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       testDBName,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/%s?sslmode=disable", host, port.Port(), testDBName)
}

func TestMigratorIntegration(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	db, err := database.OpenSQL(ctx, dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	t.Run("Version before any migration is zero", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, testDBName)
		require.NoError(t, err)

		version, dirty, err := migrator.Version()
		require.NoError(t, err)
		assert.False(t, dirty)
		assert.Equal(t, uint(0), version)
	})

	t.Run("Up creates the schema", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, testDBName)
		require.NoError(t, err)

		require.NoError(t, migrator.Up())
		// second run has nothing to do
		require.NoError(t, migrator.Up())

		version, dirty, err := migrator.Version()
		require.NoError(t, err)
		assert.False(t, dirty, "migration should not be dirty")
		assert.Equal(t, uint(1), version)

		assertTableExists(t, db, "biometric_templates")
		assertTableExists(t, db, "kv_entries")
	})

	t.Run("biometric_templates has expected columns", func(t *testing.T) {
		columns := getTableColumns(t, db, "biometric_templates")
		for _, col := range []string{"user_id", "method", "descriptor", "dimension", "enrolled_on"} {
			assert.Contains(t, columns, col)
		}
	})

	t.Run("method check rejects unknown modality", func(t *testing.T) {
		_, err := db.Exec(`
			INSERT INTO biometric_templates (user_id, method, descriptor, dimension, enrolled_on)
			VALUES ('u1', 'iris', '[1,0]', 2, NOW())
		`)
		assert.Error(t, err)
	})

	t.Run("Down drops the schema", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, testDBName)
		require.NoError(t, err)

		require.NoError(t, migrator.Down())

		var exists bool
		err = db.QueryRow(tableExistsQuery, "kv_entries").Scan(&exists)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestNewPoolIntegration(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(dsn))
	require.NoError(t, err)
	defer pool.Close()

	assert.NoError(t, database.HealthCheck(ctx, pool))
	assert.Equal(t, int32(10), pool.Config().MaxConns)
}

const tableExistsQuery = `
	SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_schema = 'public'
		AND table_name = $1
	)
`

func assertTableExists(t *testing.T, db *sql.DB, tableName string) {
	t.Helper()

	var exists bool
	err := db.QueryRow(tableExistsQuery, tableName).Scan(&exists)

	require.NoError(t, err)
	assert.True(t, exists, "table %s should exist", tableName)
}

func getTableColumns(t *testing.T, db *sql.DB, tableName string) []string {
	t.Helper()

	rows, err := db.Query(`
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = 'public'
		AND table_name = $1
		ORDER BY ordinal_position
	`, tableName)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var col string
		require.NoError(t, rows.Scan(&col))
		columns = append(columns, col)
	}

	return columns
}
