// Package testutil starts throwaway PostgreSQL databases for storage tests.
package testutil

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/arianrhod/internal/config"
	"github.com/cory-johannsen/arianrhod/internal/storage/postgres"
)

const postgresImage = "postgres:16-alpine"

// MigrationsDir returns the absolute path of the repository's migrations
// directory.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// StartPostgres runs a PostgreSQL container for the lifetime of t and returns
// its connection settings. It fails t if the container does not come up.
//
// Precondition: Docker must be available.
func StartPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	ctx := context.Background()
	began := time.Now()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "sheet",
				"POSTGRES_PASSWORD": "sheet",
				"POSTGRES_DB":       "arianrhod_test",
			},
			// The entrypoint restarts the server once after init.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(45 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting %s: %v", postgresImage, err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	t.Logf("postgres ready at %s:%s [%s]", host, port.Port(), time.Since(began))

	return config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "sheet",
		Password:        "sheet",
		Name:            "arianrhod_test",
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}
}

// Migrate applies every up migration to the database cfg names, using the
// same golang-migrate source the migrate command reads.
func Migrate(t *testing.T, cfg config.DatabaseConfig) {
	t.Helper()
	m, err := migrate.New("file://"+MigrationsDir(), cfg.DSN())
	if err != nil {
		t.Fatalf("opening migrations: %v", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("applying migrations: %v", err)
	}
}

// NewPool returns a connection pool to a freshly migrated database. The test
// is skipped under -short.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("container-backed test skipped in -short mode")
	}
	cfg := StartPostgres(t)
	Migrate(t, cfg)

	pool, err := postgres.NewPool(context.Background(), cfg)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool.DB()
}
