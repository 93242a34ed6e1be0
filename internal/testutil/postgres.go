// Package testutil provides PostgreSQL fixtures for integration tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/knw/internal/config"
	"github.com/cory-johannsen/knw/internal/storage/postgres"
)

// server is the one container shared by a test binary. Each NewPool call
// gets its own database inside it. The testcontainers reaper removes the
// container when the binary exits.
var server struct {
	once sync.Once
	cfg  config.DatabaseConfig
	err  error
	seq  atomic.Int64
}

func startServer(ctx context.Context) (config.DatabaseConfig, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return config.DatabaseConfig{}, fmt.Errorf("starting postgres container: %w", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		return config.DatabaseConfig{}, fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return config.DatabaseConfig{}, fmt.Errorf("container port: %w", err)
	}
	return config.DatabaseConfig{
		Host: host, Port: port.Int(),
		User: "test", Password: "test", Name: "test", SSLMode: "disable",
		MaxConns: 4, MinConns: 0, MaxConnLifetime: 5 * time.Minute,
	}, nil
}

// NewPool returns a pool on a freshly created and fully migrated database.
// The test is skipped in -short mode.
//
// Precondition: Docker must be available unless testing.Short() is set.
// Postcondition: The pool is closed when the test ends.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()
	start := time.Now()

	server.once.Do(func() { server.cfg, server.err = startServer(ctx) })
	if server.err != nil {
		t.Fatal(server.err)
	}

	cfg := server.cfg
	cfg.Name = fmt.Sprintf("knw_test_%d", server.seq.Add(1))
	if err := createDatabase(ctx, server.cfg, cfg.Name); err != nil {
		t.Fatal(err)
	}
	if err := migrateUp(cfg); err != nil {
		t.Fatal(err)
	}

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("connecting to %s: %v", cfg.Name, err)
	}
	t.Cleanup(pool.Close)
	t.Logf("database %s ready [%s]", cfg.Name, time.Since(start))
	return pool.DB()
}

func createDatabase(ctx context.Context, admin config.DatabaseConfig, name string) error {
	pool, err := postgres.NewPool(ctx, admin)
	if err != nil {
		return fmt.Errorf("connecting to admin database: %w", err)
	}
	defer pool.Close()
	if _, err := pool.DB().Exec(ctx, "CREATE DATABASE "+name); err != nil {
		return fmt.Errorf("creating database %s: %w", name, err)
	}
	return nil
}

func migrateUp(cfg config.DatabaseConfig) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	m, err := migrate.New("file://"+dir, cfg.DSN())
	if err != nil {
		return fmt.Errorf("opening migrations: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating %s: %w", cfg.Name, err)
	}
	return nil
}

// migrationsDir finds migrations/ beside the go.mod above the working directory.
func migrationsDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "migrations"), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found above working directory")
		}
		dir = parent
	}
}
