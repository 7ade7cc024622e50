//go:build integration

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/safishield/internal/database"
	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/repository"
	"github.com/saturnino-fabrica-de-software/safishield/internal/store"
)

var testDB *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(runWithPostgres(m))
}

func runWithPostgres(m *testing.M) int {
	ctx := context.Background()

	// Start PostgreSQL container with pgvector
	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "safishield_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Printf("Failed to start container: %v\n", err)
		return 1
	}

	defer func() {
		if err := container.Terminate(ctx); err != nil {
			fmt.Printf("Failed to terminate container: %v\n", err)
		}
	}()

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432")

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/safishield_test?sslmode=disable", host, port.Port())

	if err := migrate(ctx, connStr); err != nil {
		fmt.Printf("Failed to run migrations: %v\n", err)
		return 1
	}

	testDB, err = database.NewPool(ctx, database.DefaultPoolConfig(connStr))
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		return 1
	}
	defer testDB.Close()

	return m.Run()
}

func migrate(ctx context.Context, dsn string) error {
	db, err := database.OpenSQL(ctx, dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	migrator, err := database.NewMigrator(db, "safishield_test")
	if err != nil {
		return err
	}
	return migrator.Up()
}

func pgRouter(t *testing.T) *Router {
	t.Helper()
	deps := newDependencies(store.NewPGStore(testDB), repository.NewPGTemplateRepository(testDB), testDB)
	return newTestRouter(t, deps)
}

func TestIntegration_ReadyEndpoint(t *testing.T) {
	router := pgRouter(t)

	status, body := call(t, router, "GET", "/ready", nil)
	assert.Equal(t, 200, status, string(body))
}

func TestIntegration_TemplatesInPgvector(t *testing.T) {
	router := pgRouter(t)
	user := "integration-templates"

	status, body := call(t, router, "POST", "/v1/users/"+user+"/templates/voice", map[string]interface{}{
		"descriptor": []float64{1, 2, 2},
	})
	require.Equal(t, 201, status, string(body))

	var dimension int
	err := testDB.QueryRow(context.Background(),
		`SELECT dimension FROM biometric_templates WHERE user_id = $1 AND method = 'voice'`, user).Scan(&dimension)
	require.NoError(t, err)
	assert.Equal(t, 3, dimension)

	status, _ = call(t, router, "DELETE", "/v1/users/"+user+"/templates/voice", nil)
	assert.Equal(t, 204, status)

	status, body = call(t, router, "GET", "/v1/users/"+user+"/templates", nil)
	require.Equal(t, 200, status)
	assert.Contains(t, string(body), `"voice":{"enrolled":false}`)
}

func TestIntegration_TransactionPersists(t *testing.T) {
	router := pgRouter(t)
	user := "integration-tx"

	status, body := call(t, router, "POST", "/v1/users/"+user+"/transactions", map[string]interface{}{
		"type": "send", "recipient": "0722000000", "amount": 250,
	})
	require.Equal(t, 201, status, string(body))

	// a second router over the same database sees the balance change
	other := pgRouter(t)
	status, body = call(t, other, "GET", "/v1/users/"+user+"/profile", nil)
	require.Equal(t, 200, status)

	var profile map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &profile))
	assert.InDelta(t, domain.SeedBalance-250, profile["balance"], 1e-9)
}

func TestIntegration_PgvectorExtension(t *testing.T) {
	var version string
	err := testDB.QueryRow(context.Background(), "SELECT extversion FROM pg_extension WHERE extname = 'vector'").Scan(&version)
	require.NoError(t, err, "pgvector not available")

	t.Logf("pgvector version: %s", version)
}
