//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/store"
)

func setupIntegrationTest(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	ctx := context.Background()

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
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/safishield_test?sslmode=disable", host, port.Port())

	db, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	_, err = db.Exec(ctx, `
		CREATE EXTENSION IF NOT EXISTS "vector";

		CREATE TABLE IF NOT EXISTS biometric_templates (
			user_id     TEXT        NOT NULL,
			method      TEXT        NOT NULL CHECK (method IN ('face', 'voice')),
			descriptor  vector      NOT NULL,
			dimension   INTEGER     NOT NULL,
			enrolled_on TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, method)
		);

		CREATE TABLE IF NOT EXISTS kv_entries (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func TestPGTemplateRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewPGTemplateRepository(db)

	face := domain.BiometricTemplate{Method: domain.MethodFace, Descriptor: make([]float64, domain.FaceDescriptorSize), EnrolledOn: enrolledOn}
	face.Descriptor[0] = 1
	voice := domain.BiometricTemplate{Method: domain.MethodVoice, Descriptor: []float64{0.6, 0.8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, EnrolledOn: enrolledOn}

	require.NoError(t, repo.Save(ctx, "u1", face))
	require.NoError(t, repo.Save(ctx, "u1", voice))

	all, err := repo.All(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, all.Face)
	require.NotNil(t, all.Voice)
	assert.Len(t, all.Face.Descriptor, domain.FaceDescriptorSize)
	assert.InDeltaSlice(t, voice.Descriptor, all.Voice.Descriptor, 1e-6)

	// re-enrollment overwrites
	face.Descriptor[0], face.Descriptor[1] = 0, 1
	require.NoError(t, repo.Save(ctx, "u1", face))
	got, err := repo.Get(ctx, "u1", domain.MethodFace)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Descriptor[1])

	require.NoError(t, repo.Delete(ctx, "u1", domain.MethodFace))
	got, err = repo.Get(ctx, "u1", domain.MethodFace)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPGStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	kv := store.NewPGStore(db)
	settings := NewSettingsRepository(kv)

	threshold := 0.4
	require.NoError(t, settings.Save(ctx, "u1", domain.Settings{FaceThreshold: &threshold}))
	s, err := settings.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0.4, s.EffectiveFaceThreshold())

	n, err := kv.DeletePrefix(ctx, "u1:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
