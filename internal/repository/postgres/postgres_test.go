// Package postgres provides PostgreSQL repository implementations with integration tests
package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresTestHelper provides utilities for PostgreSQL integration tests
type PostgresTestHelper struct {
	db        *DB
	container testcontainers.Container
	ctx       context.Context
}

// NewPostgresTestHelper creates and starts a PostgreSQL container for testing
func NewPostgresTestHelper(ctx context.Context, t *testing.T) *PostgresTestHelper {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "satelit_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/satelit_test?sslmode=disable",
		host, port.Port())

	db, err := New(connStr, 8, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to open database connection: %v", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("Failed to create test tables: %v", err)
	}

	return &PostgresTestHelper{
		db:        db,
		container: container,
		ctx:       ctx,
	}
}

// Close stops the PostgreSQL container and closes the database connection
func (h *PostgresTestHelper) Close(t *testing.T) {
	if err := h.db.Close(); err != nil {
		t.Logf("Warning: failed to close database: %v", err)
	}

	if err := h.container.Terminate(h.ctx); err != nil {
		t.Logf("Warning: failed to terminate container: %v", err)
	}
}

// DB returns the database handle
func (h *PostgresTestHelper) DB() *DB {
	return h.db
}

// ClearTables truncates all tables (useful for test isolation)
func (h *PostgresTestHelper) ClearTables(ctx context.Context, t *testing.T) {
	tables := []string{
		"queued_jobs",
		"tasks",
		"schedules",
	}

	for _, table := range tables {
		if _, err := h.db.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			t.Logf("Warning: failed to truncate table %s: %v", table, err)
		}
	}
}
